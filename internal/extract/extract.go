// Package extract evaluates fetched HTML against a criteria set. It is a
// pure collaborator of the crawl engine: text in, (matched, title) out.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UntitledFallback is used when a matching page carries no usable <title>.
const UntitledFallback = "Ohne Titel"

// CriteriaMatcher matches page text against a fixed set of criteria,
// case-insensitively and literally (criteria are terms, not patterns).
type CriteriaMatcher struct {
	patterns []*regexp.Regexp
}

// NewCriteriaMatcher compiles one pattern per criterion.
func NewCriteriaMatcher(criteria []string) (*CriteriaMatcher, error) {
	patterns := make([]*regexp.Regexp, 0, len(criteria))
	for _, crit := range criteria {
		crit = strings.TrimSpace(crit)
		if crit == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(crit))
		if err != nil {
			return nil, fmt.Errorf("compile criterion %q: %w", crit, err)
		}
		patterns = append(patterns, re)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("criteria set is empty")
	}
	return &CriteriaMatcher{patterns: patterns}, nil
}

// Match reports whether the page's visible text contains any criterion and
// returns the page title, falling back to UntitledFallback.
func (m *CriteriaMatcher) Match(html []byte) (bool, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return false, ""
	}
	doc.Find("script, style, noscript").Remove()
	text := doc.Text()

	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true, titleOf(doc)
		}
	}
	return false, ""
}

func titleOf(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return UntitledFallback
	}
	return strings.Join(strings.Fields(title), " ")
}
