package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifter operations.
var (
	// ErrMissingField indicates an attribute could not be resolved on a record.
	ErrMissingField = errors.New("missing field")

	// ErrUnsupportedQuery indicates a backend cannot express a query construct.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrNotInCache indicates a cache miss or an expired entry.
	ErrNotInCache = errors.New("not in cache")

	// ErrDisabledCache indicates the cache was bypassed because it is disabled.
	ErrDisabledCache = errors.New("cache is disabled")

	// ErrDoesNotExist indicates get() matched zero records.
	ErrDoesNotExist = errors.New("object does not exist")

	// ErrMultipleObjectsReturned indicates get() matched more than one record.
	ErrMultipleObjectsReturned = errors.New("multiple objects returned")

	// ErrBadQuery indicates a remote backend rejected the request (4xx).
	ErrBadQuery = errors.New("bad query")

	// ErrStoreError indicates a remote backend failure (5xx).
	ErrStoreError = errors.New("store error")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrEmptyPath indicates a field path without segments.
	ErrEmptyPath = errors.New("field path is empty")

	// ErrInvalidLookup indicates an unknown lookup name or a bad operand.
	ErrInvalidLookup = errors.New("invalid lookup")

	// ErrTooManyOperands indicates an `in` lookup exceeds MaxInOperands.
	ErrTooManyOperands = errors.New("in lookup has too many operands")

	// ErrMissingIdentifier indicates a cached store without an identifier.
	ErrMissingIdentifier = errors.New("a store using a cache requires an identifier")

	// ErrCoercionFailed indicates a field value could not be coerced to its declared type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrInvalidAggregate indicates a malformed aggregate request.
	ErrInvalidAggregate = errors.New("invalid aggregate")

	// ErrInvalidRecord indicates a raw item an adapter could not convert.
	ErrInvalidRecord = errors.New("invalid record")
)

// MissingFieldError carries the record and name that failed to resolve.
type MissingFieldError struct {
	Record any
	Name   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q on %T", e.Name, e.Record)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// UnsupportedQueryError carries the node a backend refused to translate.
type UnsupportedQueryError struct {
	Node   any
	Reason string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("unsupported query: %s: %v", e.Reason, e.Node)
}

func (e *UnsupportedQueryError) Unwrap() error { return ErrUnsupportedQuery }

// StatusError carries the HTTP status and body of a failed remote request.
// Unwraps to ErrBadQuery for 4xx and ErrStoreError otherwise.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrBadQuery
	}
	return ErrStoreError
}
