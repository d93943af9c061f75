package shared

import (
	"math"
	"net/http"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest carries the 1-based page plus page size from a listing request.
type PageRequest struct {
	Page int
	Size int
}

// ParsePageRequest reads page/size query parameters, applying the default
// size and the hard cap.
func ParsePageRequest(r *http.Request, defaultSize, maxSize int) PageRequest {
	req := PageRequest{Page: 1, Size: defaultSize}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		req.Page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 {
		req.Size = s
	}
	if maxSize > 0 && req.Size > maxSize {
		req.Size = maxSize
	}
	return req
}

// LimitOffset converts the page request into SQL limit/offset values.
func (p PageRequest) LimitOffset() (int, int) {
	limit := p.Size
	if limit <= 0 {
		limit = 50
	}
	offset := (p.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
