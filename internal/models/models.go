package models

import "time"

// URLRecord represents a shortened URL and its access statistics.
type URLRecord struct {
	// ID is the unique identifier for the record.
	ID int64
	// ShortCode is the globally unique code associated with the original URL.
	ShortCode string
	// OriginalURL is the normalized, full-length URL that the short code points to.
	OriginalURL string
	// ShortURL is the displayable short URL, derived from the base URL and the short code.
	ShortURL string
	// ClickCount tracks the number of times the short URL has been resolved.
	ClickCount int64
	// LastAccessed is the timestamp of the most recent successful resolution, nil until then.
	LastAccessed *time.Time
	// CreatedAt is the timestamp indicating when the record was created.
	CreatedAt time.Time
}

// Owner holds a collection of URL records. It is either a registered account
// or a one-off anonymous bucket created for a single anonymous submission.
type Owner struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Anonymous bool
	CreatedAt time.Time
}

// OwnerAttrs carries the attributes needed to create an owner.
type OwnerAttrs struct {
	FirstName string
	LastName  string
	Email     string
	Anonymous bool
}

// CollisionStats reports total records against distinct short codes.
// The two numbers are equal as long as the uniqueness constraint holds.
type CollisionStats struct {
	TotalRecords  int64
	DistinctCodes int64
}
