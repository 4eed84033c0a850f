package models

import "gorm.io/gorm"

// Page is the offset-pagination envelope for REST list endpoints.
type Page[T any] struct {
	Records    []*T  `json:"records"`
	Total      int64 `json:"total"`
	PageNumber int   `json:"page"`
	PageSize   int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

const defaultPageSize = 25
const maxPageSize = 200

// FetchPage runs the filtered query twice: once for the total count and
// once for the page window. dbCtx must already carry the model and WHERE
// clauses.
func FetchPage[T any](dbCtx *gorm.DB, page int, limit int, order string) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []*T
	if err := dbCtx.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page[T]{
		Records:    records,
		Total:      total,
		PageNumber: page,
		PageSize:   limit,
		TotalPages: totalPages,
	}, nil
}
