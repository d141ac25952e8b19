package db

import "errors"

var (
	// ErrStorageUnavailable means the engine could not be opened. Every
	// operation fails with it until Open succeeds.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned by Get when no envelope has the requested id.
	ErrNotFound = errors.New("quote not found")
	// ErrWrite wraps engine failures during create, update, delete or clear.
	// The write is never partially applied.
	ErrWrite = errors.New("storage write failed")
	// ErrReusableIDs means the quotes table would let SQLite hand out the id
	// of a deleted row again. Open refuses such a schema.
	ErrReusableIDs = errors.New("quotes id column lacks AUTOINCREMENT")
)
