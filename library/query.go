package library

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// ListOptions selects the sort order and page of a listing.
type ListOptions struct {
	SortField string
	Ascending bool
	Page      int // 1-based; values below 1 mean 1
	PageSize  int
}

// Page is one slice of a filtered, sorted listing.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	Total      int // matches before paging
	TotalPages int
}

// Ordering compares two values for one sort field. Values for which Missing
// reports true sort after every present value in both directions.
type Ordering[T any] struct {
	Compare func(a, b T) int
	Missing func(T) bool
}

// Sorter is the allow-list of sort fields for an entity. Unknown names fall
// back to the entity's primary key.
type Sorter[T any] struct {
	fields   map[string]Ordering[T]
	fallback string
}

// NewSorter builds a sorter from named orderings; unknown fields sort by fallback.
func NewSorter[T any](fallback string, fields map[string]Ordering[T]) Sorter[T] {
	norm := make(map[string]Ordering[T], len(fields))
	for name, o := range fields {
		norm[strings.ToLower(name)] = o
	}
	return Sorter[T]{fields: norm, fallback: strings.ToLower(fallback)}
}

// Fields returns the sortable field names.
func (s Sorter[T]) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (s Sorter[T]) ordering(field string) Ordering[T] {
	if o, ok := s.fields[strings.ToLower(strings.TrimSpace(field))]; ok {
		return o
	}
	return s.fields[s.fallback]
}

// FilterSortPaginate keeps the values accepted by every filter, sorts them
// stably and returns the requested page. A page past the end is empty.
func FilterSortPaginate[T any](source []T, filters []func(T) bool, sorter Sorter[T], opts ListOptions) Page[T] {
	matched := make([]T, 0, len(source))
next:
	for _, v := range source {
		for _, keep := range filters {
			if !keep(v) {
				continue next
			}
		}
		matched = append(matched, v)
	}

	o := sorter.ordering(opts.SortField)
	slices.SortStableFunc(matched, func(a, b T) int {
		if o.Missing != nil {
			am, bm := o.Missing(a), o.Missing(b)
			switch {
			case am && bm:
				return 0
			case am:
				return 1
			case bm:
				return -1
			}
		}
		c := o.Compare(a, b)
		if !opts.Ascending {
			c = -c
		}
		return c
	})

	return Paginate(matched, opts.Page, opts.PageSize)
}

// Paginate returns the 1-based page of items.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	p := Page[T]{Items: []T{}, Number: page, Size: size, Total: len(items)}
	if size <= 0 {
		return p
	}
	p.TotalPages = (len(items) + size - 1) / size
	from := (page - 1) * size
	if from >= len(items) {
		return p
	}
	to := min(from+size, len(items))
	p.Items = items[from:to]
	return p
}

// ---------------------------------------------------------------------------
// Comparators
// ---------------------------------------------------------------------------

func compareFold(a, b string) int { return strings.Compare(fold(a), fold(b)) }

func compareTime(a, b time.Time) int { return a.Compare(b) }

func compareInt(a, b int) int { return cmp.Compare(a, b) }
