package respenvelope

import (
	"fmt"
	"net/url"
)

// Page is one page of a length-aware collection. It is used as the data
// member of a success envelope.
type Page[T any] struct {
	CurrentPage  int     `json:"current_page"`
	Data         []T     `json:"data"`
	FirstPageURL *string `json:"first_page_url"`
	From         *int    `json:"from"`
	LastPage     int     `json:"last_page"`
	LastPageURL  *string `json:"last_page_url"`
	NextPageURL  *string `json:"next_page_url"`
	Path         *string `json:"path"`
	PerPage      int     `json:"per_page"`
	PrevPageURL  *string `json:"prev_page_url"`
	To           *int    `json:"to"`
	Total        int     `json:"total"`
}

// Paginate wraps items, the contents of page out of total records split in
// pages of perPage. Items keep their order. page and perPage below 1 are
// treated as 1.
func Paginate[T any](items []T, page, perPage, total int) Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if items == nil {
		items = []T{}
	}
	if total < len(items) {
		total = len(items)
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	p := Page[T]{
		CurrentPage: page,
		Data:        items,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
	if len(items) > 0 {
		from := (page-1)*perPage + 1
		to := from + len(items) - 1
		p.From, p.To = &from, &to
	}
	return p
}

// WithPath fills the navigation URLs relative to path, which may carry
// its own query string. The page parameter is replaced.
func (p Page[T]) WithPath(path string) Page[T] {
	u, err := url.Parse(path)
	if err != nil {
		return p
	}
	base := *u
	base.RawQuery = ""
	basePath := base.String()
	p.Path = &basePath

	pageURL := func(n int) *string {
		q := u.Query()
		q.Set("page", fmt.Sprint(n))
		v := base
		v.RawQuery = q.Encode()
		s := v.String()
		return &s
	}

	p.FirstPageURL = pageURL(1)
	p.LastPageURL = pageURL(p.LastPage)
	if p.CurrentPage < p.LastPage {
		p.NextPageURL = pageURL(p.CurrentPage + 1)
	}
	if p.CurrentPage > 1 {
		p.PrevPageURL = pageURL(p.CurrentPage - 1)
	}
	return p
}

// Len returns the number of items on the page.
func (p Page[T]) Len() int { return len(p.Data) }
