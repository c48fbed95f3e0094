package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound       = errors.New("db: key not found")
	ErrNamespaceNotFound = errors.New("db: namespace not found")
)

// Op constants name backend operations for error context.
const (
	OpSearch     = "FT.SEARCH"
	OpIndexInfo  = "FT.INFO"
	OpGet        = "GET"
	OpSet        = "SET"
	OpQuery      = "Query"
	OpCollection = "GetCollectionInfo"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
