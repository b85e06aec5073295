// Package writer persists matched records to CSV or JSON.
package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daWurzl/PTC/internal/crawler"
)

// Locale selects the CSV header language. The two logical fields are the
// same either way.
type Locale string

// Supported locales.
const (
	LocaleEN Locale = "en"
	LocaleDE Locale = "de"
)

func header(locale Locale) []string {
	if locale == LocaleDE {
		return []string{"Titel", "Link"}
	}
	return []string{"Title", "URL"}
}

// WriteCSV writes records to path with a locale-appropriate header,
// creating parent directories as needed.
func WriteCSV(path string, records []crawler.MatchRecord, locale Locale) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header(locale)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write([]string{rec.Title, rec.URL}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", path, err)
	}
	return f.Close()
}

// WriteJSON writes records to path as an indented JSON array.
func WriteJSON(path string, records []crawler.MatchRecord) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []crawler.MatchRecord{}
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json %s: %w", path, err)
	}
	return f.Close()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file %s: %w", path, err)
	}
	return f, nil
}
