// Package saierrors defines the typed error taxonomy for the SAI engine.
//
// Every class from the error-handling design is one *errors.Kind, grounded
// on the teacher's sql/index/pilosa package (errTypeMismatch, errUnknownType)
// generalized from a single package to the whole engine.
package saierrors

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// DDL validation (class 1): unsupported type, option mismatch, etc.
	// Surfaced at statement prepare, no side effects.
	ErrDDLValidation = errors.NewKind("invalid index configuration: %s")

	// Write-time term rejection (class 2).
	ErrTermTooLarge  = errors.NewKind("term for column %q exceeds the %d byte limit (got %d)")
	ErrVectorInvalid = errors.NewKind("vector for column %q is invalid: %s")

	// Build-time failure (class 3).
	ErrBuildFailed  = errors.NewKind("index build failed for sstable %q column %q: %s")
	ErrBuildAborted = errors.NewKind("index build for sstable %q was aborted: %s")

	// Read-time corruption (class 4).
	ErrCorruption = errors.NewKind("component %s for sstable %q column %q failed checksum validation")

	// Query-time rejection (class 5).
	ErrUnsupportedOperator = errors.NewKind("operator %s is not supported by index kind %s on column %q")
	ErrNotQueryable        = errors.NewKind("index %q is not queryable: %s")
	ErrBuildIncomplete     = errors.NewKind("index %q initial build is still in progress")
	ErrDeadlineExceeded    = errors.NewKind("query exceeded its deadline while reading index %q")
)

// Cancellation (class 6) is explicitly not an error; see posting.EndOfStream.
