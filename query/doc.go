// Package query defines the engine-agnostic value objects that describe a
// query: filters, filter groups, sort terms, pagination windows, aggregate
// statistics and having clauses.
//
// # Overview
//
// Everything in this package is a small immutable value validated at
// construction time. Storage adapters consume these values through
// query.Params; they never see the builder or criteria layers that produce
// them.
//
// # Operator Validation
//
// Each Operator carries shape rules for its value: text operators require a
// string, membership and array operators require a non-string iterable,
// BETWEEN requires an ordered Range, and the null/empty checks forbid a value
// entirely. The rules are enforced once, inside NewFilter and NewHaving, so
// every entry point (typed criteria, builder shorthands, string operators)
// shares the same validation.
//
// # Error Handling
//
// Constructors return validation-category errors from goliatone/go-errors.
// Use IsValidation to classify them at call sites.
package query
