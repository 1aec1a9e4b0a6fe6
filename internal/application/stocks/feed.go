package stocks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ttrnecka/rebbl-stock-market/internal/domain"

	"github.com/shopspring/decimal"
)

var feedColumns = []string{"name", "code", "price", "race", "coach", "division"}

// ParseFeed reads the CSV price feed. The first line is a header naming at
// least the name, code and price columns, in any order.
func ParseFeed(r io.Reader) ([]FeedRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrInvalidFeed, err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range feedColumns[:3] {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidFeed, col)
		}
	}

	var rows []FeedRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidFeed, line, err)
		}
		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if field("name") == "" {
			continue
		}
		price, err := decimal.NewFromString(field("price"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: price %q", domain.ErrInvalidFeed, line, field("price"))
		}
		rows = append(rows, FeedRow{
			Name:     field("name"),
			Code:     field("code"),
			Price:    price,
			Race:     field("race"),
			Coach:    field("coach"),
			Division: field("division"),
		})
	}
	return rows, nil
}

// LoadFeed reads and parses the feed from a file path or an http(s) URL.
func LoadFeed(ctx context.Context, source string) ([]FeedRow, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: no feed source configured", domain.ErrInvalidFeed)
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
		}
		return ParseFeed(resp.Body)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFeed(f)
}
