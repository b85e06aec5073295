package writer

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daWurzl/PTC/internal/crawler"
)

var sampleRecords = []crawler.MatchRecord{
	{Title: "Aktuelle Ausschreibungen", URL: "https://a.test/"},
	{Title: "Druckauftrag, Broschüren", URL: "https://b.test/"},
}

func TestWriteCSVGermanHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "results.csv")
	require.NoError(t, WriteCSV(path, sampleRecords, LocaleDE))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Titel", "Link"}, rows[0])
	require.Equal(t, []string{"Aktuelle Ausschreibungen", "https://a.test/"}, rows[1])
	require.Equal(t, []string{"Druckauftrag, Broschüren", "https://b.test/"}, rows[2])
}

func TestWriteCSVEnglishHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, WriteCSV(path, nil, LocaleEN))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "empty run still writes the header")
	require.Equal(t, []string{"Title", "URL"}, rows[0])
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteJSON(path, sampleRecords))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []crawler.MatchRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, sampleRecords, decoded)
}

func TestWriteJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteJSON(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []crawler.MatchRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded)
	require.Empty(t, decoded)
}
