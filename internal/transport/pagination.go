package transport

// Pagination is the page envelope returned next to every list.
type Pagination struct {
	Current    int   `json:"current"`
	Total      int   `json:"total"`
	Count      int   `json:"count"`
	TotalItems int64 `json:"totalItems"`
}

func NewPagination(page, limit, count int, totalItems int64) Pagination {
	total := 0
	if limit > 0 {
		total = int((totalItems + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Current:    page,
		Total:      total,
		Count:      count,
		TotalItems: totalItems,
	}
}

func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
