package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnknownVariant signals an embedder variant outside the supported set.
	ErrUnknownVariant = errors.New("unknown embedder variant")

	// ErrNotFitted signals a corpus-fitted embedder used before Fit.
	ErrNotFitted = errors.New("embedder not fitted")
	// ErrDimensionMismatch signals a vector or collection of the wrong dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrVariantMismatch signals a query embedded by one variant against another variant's collection.
	ErrVariantMismatch = errors.New("embedder variant mismatch")
	// ErrInvalidQuery signals a query that cannot be executed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrBatchIndex signals a failed indexing batch.
	ErrBatchIndex = errors.New("batch index failed")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// NotFittedError wraps ErrNotFitted with the offending variant.
type NotFittedError struct {
	Variant string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s requires Fit before Embed", ErrNotFitted.Error(), e.Variant)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// NewNotFitted creates a not-fitted error.
func NewNotFitted(variant string) error {
	return &NotFittedError{Variant: variant}
}

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual sizes.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: collection %s has dimension %d, got %d",
		ErrDimensionMismatch.Error(), e.Collection, e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(collection string, expected, got int) error {
	return &DimensionMismatchError{Collection: collection, Expected: expected, Got: got}
}

// VariantMismatchError wraps ErrVariantMismatch with both sides of the mismatch.
type VariantMismatchError struct {
	Query      string
	Collection string
}

func (e *VariantMismatchError) Error() string {
	return fmt.Sprintf("%s: query embedded with %s cannot search collection %s",
		ErrVariantMismatch.Error(), e.Query, e.Collection)
}

func (e *VariantMismatchError) Unwrap() error { return ErrVariantMismatch }

// NewVariantMismatch creates a variant mismatch error.
func NewVariantMismatch(query, collection string) error {
	return &VariantMismatchError{Query: query, Collection: collection}
}

// InvalidQueryError wraps ErrInvalidQuery with a human-readable reason.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return ErrInvalidQuery.Error() + ": " + e.Reason
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }

// NewInvalidQuery creates an invalid query error.
func NewInvalidQuery(format string, args ...any) error {
	return &InvalidQueryError{Reason: fmt.Sprintf(format, args...)}
}

// BatchIndexError describes one skipped indexing batch.
type BatchIndexError struct {
	Collection string
	Batch      int
	Offset     int
	Size       int
	Err        error
}

func (e *BatchIndexError) Error() string {
	return fmt.Sprintf("%s: collection %s batch %d (offset %d, size %d): %v",
		ErrBatchIndex.Error(), e.Collection, e.Batch, e.Offset, e.Size, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *BatchIndexError) Unwrap() []error { return []error{ErrBatchIndex, e.Err} }
