// Package pagination implements offset-token paging for list endpoints.
package pagination

import "strconv"

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Pagination is bound from list query parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// PageInfo is returned alongside list payloads.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	PageSize      int    `json:"page_size"`
}

func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

func (p Pagination) Offset() int {
	offset, err := strconv.Atoi(p.PageToken)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Next builds the page info for a page that returned fetched rows.
func (p Pagination) Next(fetched int) PageInfo {
	info := PageInfo{PageSize: p.Limit()}
	if fetched >= p.Limit() {
		info.NextPageToken = strconv.Itoa(p.Offset() + fetched)
	}
	return info
}
