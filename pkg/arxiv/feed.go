// Package arxiv provides the data model for the Atom feed returned by the arXiv query API.
package arxiv

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Feed is the Atom document returned by the arXiv query endpoint. A search
// yields zero or more entries; entry order is the API's own relevance order.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Title   string   `xml:"title"`
	Entries []Entry  `xml:"entry"`
}

// Entry is a single search result within a feed. ID carries the entry's
// unique abstract-page URL, from which the repository identifier is derived.
type Entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []Author `xml:"author"`
}

// Author is a contributor listed on a feed entry.
type Author struct {
	Name string `xml:"name"`
}

// Article identifies a resolved arXiv document: the repository identifier
// and the PDF retrieval URL deterministically derived from it. Articles are
// request-scoped values and are never cached across tool invocations.
type Article struct {
	ID     string
	PDFURL string
}

// ParseFeed decodes an Atom feed body returned by the arXiv query API.
func ParseFeed(data []byte) (*Feed, error) {
	var feed Feed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv feed: %w", err)
	}
	return &feed, nil
}

// ExtractID pulls the arXiv identifier from an entry's <id> URL: the suffix
// after the last "/abs/" segment (e.g. "http://arxiv.org/abs/1706.03762"
// yields "1706.03762"). Returns "" when the URL has no "/abs/" segment.
// Version suffixes are kept verbatim so the derived PDF URL points at the
// exact entry the search returned.
func ExtractID(idURL string) string {
	const segment = "/abs/"
	idx := strings.LastIndex(idURL, segment)
	if idx < 0 {
		return ""
	}
	return idURL[idx+len(segment):]
}
