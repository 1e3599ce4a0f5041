package query

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Direction orders a sort term.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// ParseDirection accepts asc/desc spellings case-insensitively, defaulting
// empty input to ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC", "ASCENDING":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	}
	return "", errValidation("unknown sort direction %q", s)
}

// Sort is one ordering term.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// NewSort builds a validated Sort.
func NewSort(field string, direction Direction) (Sort, error) {
	s := Sort{Field: field, Direction: direction}
	if err := s.Validate(); err != nil {
		return Sort{}, err
	}
	return s, nil
}

// Validate checks the field and direction.
func (s Sort) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.Field, validation.Required),
		validation.Field(&s.Direction, validation.Required, validation.In(Ascending, Descending)),
	); err != nil {
		return errValidation("invalid sort: %v", err)
	}
	return nil
}
