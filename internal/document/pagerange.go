package document

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePageRange parses a 1-based selection like "1-3,5" into 0-based page
// indices. An empty string selects every page and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := parsePageNumber(rangeParts[0])
		if err != nil {
			return nil, err
		}
		end, err := parsePageNumber(rangeParts[1])
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i-1)
		}
		return out, nil
	}
	page, err := parsePageNumber(part)
	if err != nil {
		return nil, err
	}
	return []int{page - 1}, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page number: %q", s)
	}
	return n, nil
}
