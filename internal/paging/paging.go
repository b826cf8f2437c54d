package paging

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Page is one slice of a listing plus the total row count of the listing.
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	Current int   `json:"current"`
	Size    int   `json:"size"`
}

// Normalize clamps 1-based page numbers and page sizes to sane values.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return page, size
}

func Offset(page, size int) int {
	page, size = Normalize(page, size)
	return (page - 1) * size
}

// Map converts the records of a page while keeping its counters.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{Records: make([]U, 0, len(p.Records)), Total: p.Total, Current: p.Current, Size: p.Size}
	for _, r := range p.Records {
		out.Records = append(out.Records, fn(r))
	}
	return out
}
