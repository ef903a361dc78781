package overseerr

import (
	"context"
)

// Searcher resolves titles to media identifiers
type Searcher interface {
	// Search returns hits of the given kind ranked by the remote service
	Search(ctx context.Context, title string, kind MediaType) ([]SearchResult, error)

	// SearchMusicAlbum searches the album catalog of legacy servers
	SearchMusicAlbum(ctx context.Context, title string) ([]Album, error)
}

// Requester performs the mutating calls behind the user actions
type Requester interface {
	Searcher

	// Request submits a movie or tv request
	Request(ctx context.Context, mediaID int, kind MediaType, opts RequestOptions) error

	// RequestMusic submits an album request on legacy servers
	RequestMusic(ctx context.Context, foreignAlbumID string) error

	// ListRequests retrieves every request on the server
	ListRequests(ctx context.Context) ([]MediaRequest, error)

	// UpdateStatus moves a request to a new status
	UpdateStatus(ctx context.Context, requestID int, action RequestAction) error
}

// Stats provides the count and last-item accessors the sensors poll
type Stats interface {
	MovieRequestCounts(ctx context.Context) (RequestCounts, error)
	TVRequestCounts(ctx context.Context) (RequestCounts, error)
	PendingRequestCounts(ctx context.Context) (RequestCounts, error)
	TotalRequestCounts(ctx context.Context) (RequestCounts, error)
	IssueCounts(ctx context.Context) (IssueCounts, error)

	LastMovieRequest(ctx context.Context) (*MediaRequest, error)
	LastTVRequest(ctx context.Context) (*MediaRequest, error)
	LastPendingRequest(ctx context.Context) (*MediaRequest, error)
	LastRequest(ctx context.Context) (*MediaRequest, error)
	LastIssue(ctx context.Context) (*Issue, error)
}

var (
	_ Requester = (*Client)(nil)
	_ Stats     = (*Client)(nil)
)
