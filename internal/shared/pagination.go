package shared

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page  int
	Size  int
	Total int
	Pages int
}

// NewPagination computes pagination metadata. Size is the number of records
// actually returned, which may be short on the last page.
func NewPagination(page, perPage, size, total int) Pagination {
	if perPage <= 0 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	return Pagination{Page: page, Size: size, Total: total, Pages: pages}
}
