package tabular

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLTableSource reads the first table matching Selector from a web page,
// such as a sheet published with "Publish to web".
type HTMLTableSource struct {
	URL      string
	Selector string
	// Published drops the row-number and column-letter header cells the
	// Sheets HTML export adds, keeping only data cells.
	Published bool
	Client    *http.Client
}

func (s HTMLTableSource) Describe() string {
	return "html:" + s.URL
}

func (s HTMLTableSource) Values(ctx context.Context) ([][]string, error) {
	if strings.TrimSpace(s.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrSourceUnavailable)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrSourceUnavailable, s.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrSourceUnavailable, err)
	}
	return tableValues(doc, s.Selector, s.Published)
}

func tableValues(doc *goquery.Document, selector string, published bool) ([][]string, error) {
	if selector == "" {
		selector = "table"
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no element matches %q", ErrInvalidRange, selector)
	}

	cellSel := "th, td"
	if published {
		cellSel = "td"
	}

	var values [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find(cellSel)
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, strings.TrimSpace(c.Text()))
		})
		values = append(values, row)
	})

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: table has no rows", ErrInvalidRange)
	}
	return values, nil
}
