package library

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type item struct {
	id   int
	name string
}

var itemSorter = NewSorter("id", map[string]Ordering[item]{
	"id":   {Compare: func(a, b item) int { return compareInt(a.id, b.id) }},
	"name": {Compare: func(a, b item) int { return compareFold(a.name, b.name) }, Missing: func(i item) bool { return i.name == "" }},
})

func items() []item {
	return []item{{5, "echo"}, {2, "Bravo"}, {9, ""}, {1, "alpha"}, {7, "bravo"}, {3, "Delta"}, {4, ""}}
}

func TestPaginationConcatenatesToFullList(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4, 7, 10} {
		for _, asc := range []bool{true, false} {
			opts := ListOptions{SortField: "name", Ascending: asc, PageSize: size, Page: 1}
			first := FilterSortPaginate(items(), nil, itemSorter, opts)

			var all []item
			for p := 1; p <= first.TotalPages; p++ {
				opts.Page = p
				all = append(all, FilterSortPaginate(items(), nil, itemSorter, opts).Items...)
			}
			opts.Page, opts.PageSize = 1, 100
			assert.Equal(t, FilterSortPaginate(items(), nil, itemSorter, opts).Items, all, "size %d asc %v", size, asc)
		}
	}
}

func TestSortIsStableAndMissingLast(t *testing.T) {
	asc := FilterSortPaginate(items(), nil, itemSorter, ListOptions{SortField: "NAME", Ascending: true, Page: 1, PageSize: 10})
	assert.Equal(t, []int{1, 2, 7, 3, 5, 9, 4}, ids(asc.Items))

	desc := FilterSortPaginate(items(), nil, itemSorter, ListOptions{SortField: "name", Ascending: false, Page: 1, PageSize: 10})
	assert.Equal(t, []int{5, 3, 2, 7, 1, 9, 4}, ids(desc.Items))
}

func TestUnknownSortFieldFallsBackToKey(t *testing.T) {
	p := FilterSortPaginate(items(), nil, itemSorter, ListOptions{SortField: "colour", Ascending: true, Page: 1, PageSize: 10})
	assert.True(t, slices.IsSorted(ids(p.Items)))
}

func TestFiltersAreConjunctive(t *testing.T) {
	filters := []func(item) bool{
		func(i item) bool { return containsFold(i.name, "A") },
		func(i item) bool { return i.id > 1 },
	}
	p := FilterSortPaginate(items(), filters, itemSorter, ListOptions{SortField: "id", Ascending: true, Page: 1, PageSize: 10})
	assert.Equal(t, []int{2, 3, 7}, ids(p.Items))
	assert.Equal(t, 3, p.Total)
}

func TestPaginateEdges(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name       string
		page, size int
		want       []int
		totalPages int
	}{
		{"first", 1, 2, []int{1, 2}, 3},
		{"last partial", 3, 2, []int{5}, 3},
		{"past the end", 4, 2, []int{}, 3},
		{"page below one", 0, 2, []int{1, 2}, 3},
		{"zero size", 1, 0, []int{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(xs, tc.page, tc.size)
			assert.Equal(t, tc.want, p.Items)
			assert.Equal(t, tc.totalPages, p.TotalPages)
			assert.Equal(t, 5, p.Total)
		})
	}
}

func TestTextAndRangeFilterRules(t *testing.T) {
	assert.True(t, containsFold("Dune", "  "))
	assert.True(t, containsFold("Dune", "UN"))
	assert.False(t, containsFold("Dune", "x"))

	d := Date(2025, 1, 10)
	assert.True(t, inDateRange(d, d, d))
	assert.True(t, inDateRange(d, Date(2025, 1, 1), time.Time{}))
	assert.False(t, inDateRange(d, Date(2025, 1, 11), time.Time{}))
	assert.False(t, inDateRange(d, time.Time{}, Date(2025, 1, 9)))
}

func ids(xs []item) []int {
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.id)
	}
	return out
}
