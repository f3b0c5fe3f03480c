package source

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/almartin82/vtschooldata/internal/dataprocessing"
)

var dataExtensions = []string{".xlsx", ".xls", ".csv", ".txt"}

// Link is an anchor on a data page that points at a downloadable file.
type Link struct {
	URL  string
	Text string
}

// DiscoverLinks lists the spreadsheet links on an HTML page, resolved
// against base, in document order.
func DiscoverLinks(page []byte, base string) ([]Link, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		if !isDataLink(abs) || seen[abs.String()] {
			return
		}
		seen[abs.String()] = true
		links = append(links, Link{URL: abs.String(), Text: strings.Join(strings.Fields(a.Text()), " ")})
	})
	return links, nil
}

func isDataLink(u *url.URL) bool {
	p := strings.ToLower(u.Path)
	for _, ext := range dataExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	// Agency document pages serve the file from /documents/<slug>.
	return strings.Contains(p, "/documents/")
}

// SelectLink picks the link for endYear: one naming the school year
// ("2023-24", "FY2024", "2024") first, then a multi-year export, then the
// first link. endYear 0 always takes the first link.
func SelectLink(links []Link, endYear int) (Link, bool) {
	if len(links) == 0 {
		return Link{}, false
	}
	if endYear == 0 {
		return links[0], true
	}

	tokens := []string{
		dataprocessing.FormatYear(endYear),
		fmt.Sprintf("%d-%d", endYear-1, endYear),
		"fy" + strconv.Itoa(endYear),
		"fy" + strconv.Itoa(endYear%100),
		strconv.Itoa(endYear),
	}
	for _, tok := range tokens {
		for _, l := range links {
			hay := strings.ToLower(l.Text + " " + path.Base(l.URL))
			if strings.Contains(hay, strings.ToLower(tok)) {
				return l, true
			}
		}
	}

	for _, l := range links {
		hay := strings.ToLower(l.Text + " " + l.URL)
		if strings.Contains(hay, "all years") || strings.Contains(hay, "historical") {
			return l, true
		}
	}
	return links[0], true
}
