package database

import "errors"

var (
	// ErrDuplicateOwner is returned when an attempt is made to create
	// a non-anonymous owner with an email that is already registered.
	ErrDuplicateOwner = errors.New("owner with this email already exists")
	// ErrOwnerNotFound is returned when an owner lookup finds no match.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrDuplicateShortCode is returned when the store's uniqueness constraint
	// rejects a record write. The generator's pre-check is only an optimization;
	// this error is the actual enforcement of global short code uniqueness.
	ErrDuplicateShortCode = errors.New("short code already exists")
	// ErrRecordNotFound is returned when no record matches the given short code.
	ErrRecordNotFound = errors.New("url record not found")
)
