// Package api provides a local HTTP API over the memory deck: the filtered
// collection, its facets and stats, and add, delete and refresh.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// RecentLimit is how many records /v1/stats returns when the request
	// does not say. Zero means 5.
	RecentLimit int
}
