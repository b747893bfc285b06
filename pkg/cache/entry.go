package cache

import "time"

// Status is the lifecycle state of a cache entry.
type Status int

const (
	// StatusEmpty means the key has never been fetched.
	StatusEmpty Status = iota

	// StatusLoading means a fetch is in flight. Data and Err still hold the
	// previous result, if any.
	StatusLoading

	// StatusReady means the last fetch succeeded.
	StatusReady

	// StatusErrored means the last fetch failed. Data still holds the last
	// successful result when HasData is set.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Entry is a snapshot of one cached key.
type Entry[T any] struct {
	Key    string
	Status Status

	// Data is the last successfully fetched value. HasData distinguishes a
	// zero value from "never loaded".
	Data    T
	HasData bool

	// Err is the most recent fetch error. It is cleared by the next success.
	Err error

	// Subscribers is the number of listeners registered for the key.
	Subscribers int

	// UpdatedAt is when the last fetch settled.
	UpdatedAt time.Time
}

// Loading reports whether a fetch for the entry is in flight.
func (e Entry[T]) Loading() bool {
	return e.Status == StatusLoading
}
