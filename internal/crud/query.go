// Package crud applies list-view search, filtering, sorting and pagination to
// records fetched from the remote API.
package crud

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Record is anything that exposes its searchable fields by name.
type Record interface {
	Fields() map[string]string
}

// Query is a parsed list request. Filters hold exact field=value matches.
type Query struct {
	Search   string
	Filters  map[string]string
	Sort     string
	Desc     bool
	Page     int
	PageSize int
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

var reserved = map[string]bool{
	"search": true, "q": true, "sort": true, "order": true,
	"page": true, "page_size": true,
}

// ParseQuery reads ?search=&sort=name&order=desc&page=2&page_size=10 plus
// any other key as an exact filter. A leading "-" on sort also means desc.
func ParseQuery(v url.Values) Query {
	q := Query{
		Search:   strings.TrimSpace(v.Get("search")),
		Filters:  map[string]string{},
		Sort:     strings.TrimSpace(v.Get("sort")),
		Page:     atoiOr(v.Get("page"), 1),
		PageSize: atoiOr(v.Get("page_size"), DefaultPageSize),
	}
	if q.Search == "" {
		q.Search = strings.TrimSpace(v.Get("q"))
	}
	if strings.HasPrefix(q.Sort, "-") {
		q.Sort = q.Sort[1:]
		q.Desc = true
	}
	if strings.EqualFold(v.Get("order"), "desc") {
		q.Desc = true
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	for key, vals := range v {
		if reserved[key] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		q.Filters[key] = vals[0]
	}
	return q
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Apply runs search, filters, sort and pagination over items. Unknown filter
// or sort fields match nothing and leave the order unchanged respectively.
func Apply[T Record](items []T, q Query) Page[T] {
	needle := strings.ToLower(q.Search)
	kept := make([]T, 0, len(items))
	fields := make(map[int]map[string]string, len(items))

	for _, it := range items {
		f := it.Fields()
		if needle != "" && !matchesSearch(f, needle) {
			continue
		}
		if !matchesFilters(f, q.Filters) {
			continue
		}
		fields[len(kept)] = f
		kept = append(kept, it)
	}

	if q.Sort != "" {
		idx := make([]int, len(kept))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			c := compareValues(fields[idx[a]][q.Sort], fields[idx[b]][q.Sort])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
		sorted := make([]T, len(kept))
		for i, j := range idx {
			sorted[i] = kept[j]
		}
		kept = sorted
	}

	page := Page[T]{Total: len(kept), Page: q.Page, PageSize: q.PageSize}
	if page.PageSize <= 0 {
		page.PageSize = DefaultPageSize
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	page.Pages = (page.Total + page.PageSize - 1) / page.PageSize

	start := (page.Page - 1) * page.PageSize
	if start > len(kept) {
		start = len(kept)
	}
	end := start + page.PageSize
	if end > len(kept) {
		end = len(kept)
	}
	page.Items = kept[start:end]
	return page
}

func matchesSearch(fields map[string]string, needle string) bool {
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(fields map[string]string, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := fields[k]
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

// compareValues orders numerically when both sides parse, otherwise
// case-insensitively.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
