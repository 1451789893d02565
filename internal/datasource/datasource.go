// Package datasource opens change files and model snapshots by location:
// a local path or an http(s) URL.
package datasource

import (
	"context"
	"io"
	"strings"

	"schemagen/internal/datasource/file"
	"schemagen/internal/datasource/httpds"
)

// Source is a readable document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in errors; its extension selects the decoder.
	Name() string
}

// IsURL reports whether location is fetched over HTTP.
func IsURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// For returns the Source for location. A nil client uses httpds defaults.
func For(location string, client *httpds.Client) Source {
	if IsURL(location) {
		if client == nil {
			client = httpds.NewClient(httpds.Config{})
		}
		return client.Source(location)
	}
	return file.NewLocal(location)
}
