package dialog

import (
	"testing"

	"pgregory.net/rapid"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		page     int
		pageSize int
		want     Page
	}{
		{
			name:  "last partial page",
			total: 25, page: 2, pageSize: 10,
			want: Page{Start: 20, End: 25, Index: 2, Prev: 1, Next: 0},
		},
		{
			name:  "first page wraps back to last",
			total: 25, page: 0, pageSize: 10,
			want: Page{Start: 0, End: 10, Index: 0, Prev: 2, Next: 1},
		},
		{
			name:  "middle page",
			total: 25, page: 1, pageSize: 10,
			want: Page{Start: 10, End: 20, Index: 1, Prev: 0, Next: 2},
		},
		{
			name:  "negative page clamps to zero",
			total: 25, page: -1, pageSize: 10,
			want: Page{Start: 0, End: 10, Index: 0, Prev: 2, Next: 1, OutRange: true},
		},
		{
			name:  "page beyond end clamps to zero",
			total: 25, page: 7, pageSize: 10,
			want: Page{Start: 0, End: 10, Index: 0, Prev: 2, Next: 1, OutRange: true},
		},
		{
			name:  "single page has no neighbours",
			total: 5, page: 0, pageSize: 10,
			want: Page{Start: 0, End: 5, Index: 0, Prev: 0, Next: 0},
		},
		{
			name:  "empty list",
			total: 0, page: 0, pageSize: 10,
			want: Page{Start: 0, End: 0, Index: 0, Prev: 0, Next: 0},
		},
		{
			name:  "exact multiple",
			total: 20, page: 1, pageSize: 10,
			want: Page{Start: 10, End: 20, Index: 1, Prev: 0, Next: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(tt.total, tt.page, tt.pageSize)
			if got != tt.want {
				t.Errorf("Paginate(%d, %d, %d) = %+v, want %+v", tt.total, tt.page, tt.pageSize, got, tt.want)
			}
		})
	}
}

func TestPaginateProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(0, 500).Draw(rt, "total")
		page := rapid.IntRange(-3, 60).Draw(rt, "page")
		pageSize := rapid.IntRange(1, 25).Draw(rt, "pageSize")

		p := Paginate(total, page, pageSize)

		if p.Start < 0 || p.End < p.Start || p.End > total {
			rt.Fatalf("slice bounds out of range: %+v for total %d", p, total)
		}
		if p.End-p.Start > pageSize {
			rt.Fatalf("page larger than pageSize: %+v", p)
		}
		if total > 0 && !p.OutRange && p.End <= p.Start {
			rt.Fatalf("valid page is empty: %+v for total %d", p, total)
		}

		lastPage := 0
		if total > 0 {
			lastPage = (total - 1) / pageSize
		}
		if p.Prev < 0 || p.Prev > lastPage || p.Next < 0 || p.Next > lastPage {
			rt.Fatalf("neighbour out of range: %+v, last page %d", p, lastPage)
		}
	})
}

func TestPaginateStrings(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	page, p := PaginateStrings(items, 1, 2)
	if len(page) != 2 || page[0] != "c" || page[1] != "d" {
		t.Errorf("PaginateStrings page 1 = %v, want [c d]", page)
	}
	if p.Prev != 0 || p.Next != 2 {
		t.Errorf("PaginateStrings neighbours = prev %d next %d, want 0 and 2", p.Prev, p.Next)
	}
}
