package ports

import "context"

// FetchedObject is the result of pulling a remote resource.
type FetchedObject struct {
	Body        []byte
	ContentType string
	ETag        string
}

// RemoteFetcher pulls a remote URL, with transport-level retries hidden
// behind one call. A returned error counts as one failed processing
// attempt at the download level.
type RemoteFetcher interface {
	Fetch(ctx context.Context, sourceURL string) (*FetchedObject, error)
}
