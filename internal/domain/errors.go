package domain

import "errors"

// Run failure classes. Callers wrap these with fmt.Errorf("...: %w", ...)
// and classify with errors.Is.
var (
	// ErrConnection covers authentication failures and unreachable databases.
	ErrConnection = errors.New("database connection failed")
	// ErrTimeout covers bounded operations exceeding their deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrQuery covers a catalog query that could not execute.
	ErrQuery = errors.New("query failed")
	// ErrSerialization covers a document violating its schema.
	ErrSerialization = errors.New("document serialization failed")
	// ErrValidation covers an incomplete or inconsistent staged set.
	ErrValidation = errors.New("staged set validation failed")
	// ErrPublish covers staging IO and promotion failures.
	ErrPublish = errors.New("snapshot publish failed")
)
