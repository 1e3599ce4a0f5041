package query

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PageParams is a pagination request: 1-based page number and page size.
type PageParams struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// NewPageParams builds validated PageParams; page and size must both be at
// least 1.
func NewPageParams(page, size int) (PageParams, error) {
	p := PageParams{Page: page, Size: size}
	if err := p.Validate(); err != nil {
		return PageParams{}, err
	}
	return p, nil
}

// Validate checks the page and size bounds.
func (p PageParams) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Required, validation.Min(1)),
		validation.Field(&p.Size, validation.Required, validation.Min(1)),
	); err != nil {
		return errValidation("invalid page params: %v", err)
	}
	return nil
}

// Offset returns the number of records to skip.
func (p PageParams) Offset() int { return (p.Page - 1) * p.Size }

// Limit returns the maximum number of records in the window.
func (p PageParams) Limit() int { return p.Size }

// Page is one pagination result window together with its navigation
// metadata.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPage derives the navigation metadata from the raw window. TotalPages is
// ceil(total/size), HasNext holds when further pages exist, HasPrev when the
// window is past the first page.
func NewPage[T any](items []T, total, page, size int) (Page[T], error) {
	if total < 0 {
		return Page[T]{}, errValidation("invalid page: total must be non-negative, got %d", total)
	}
	if _, err := NewPageParams(page, size); err != nil {
		return Page[T]{}, err
	}

	totalPages := (total + size - 1) / size

	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}
