package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/seerrbridge/overseerr"
)

type requestCall struct {
	mediaID int
	kind    overseerr.MediaType
	opts    overseerr.RequestOptions
}

type statusCall struct {
	requestID int
	action    overseerr.RequestAction
}

// mockRequester implements overseerr.Requester for testing
type mockRequester struct {
	results   map[overseerr.MediaType][]overseerr.SearchResult
	albums    []overseerr.Album
	requests  []overseerr.MediaRequest
	searchErr error
	listErr   error

	// Track calls for verification
	searchCalls   int
	listCalls     int
	requestCalls  []requestCall
	musicCalls    []string
	statusUpdates []statusCall
}

func (m *mockRequester) Search(ctx context.Context, title string, kind overseerr.MediaType) ([]overseerr.SearchResult, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results[kind], nil
}

func (m *mockRequester) SearchMusicAlbum(ctx context.Context, title string) ([]overseerr.Album, error) {
	return m.albums, nil
}

func (m *mockRequester) Request(ctx context.Context, mediaID int, kind overseerr.MediaType, opts overseerr.RequestOptions) error {
	m.requestCalls = append(m.requestCalls, requestCall{mediaID: mediaID, kind: kind, opts: opts})
	return nil
}

func (m *mockRequester) RequestMusic(ctx context.Context, foreignAlbumID string) error {
	m.musicCalls = append(m.musicCalls, foreignAlbumID)
	return nil
}

func (m *mockRequester) ListRequests(ctx context.Context) ([]overseerr.MediaRequest, error) {
	m.listCalls++
	return m.requests, m.listErr
}

func (m *mockRequester) UpdateStatus(ctx context.Context, requestID int, action overseerr.RequestAction) error {
	m.statusUpdates = append(m.statusUpdates, statusCall{requestID: requestID, action: action})
	return nil
}

func newDispatcher(m *mockRequester, opts Options) *Dispatcher {
	return New(m, zerolog.Nop(), opts)
}

func TestSubmitMovieRequest(t *testing.T) {
	t.Run("uses first search result", func(t *testing.T) {
		m := &mockRequester{results: map[overseerr.MediaType][]overseerr.SearchResult{
			overseerr.MediaTypeMovie: {{ID: 438631, Title: "Dune"}, {ID: 841, Title: "Dune"}},
		}}

		err := newDispatcher(m, Options{}).SubmitMovieRequest(context.Background(), "Dune")
		require.NoError(t, err)
		require.Len(t, m.requestCalls, 1)
		assert.Equal(t, requestCall{mediaID: 438631, kind: overseerr.MediaTypeMovie}, m.requestCalls[0])
	})

	t.Run("no results issues no request", func(t *testing.T) {
		m := &mockRequester{}

		err := newDispatcher(m, Options{}).SubmitMovieRequest(context.Background(), "Nothing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, m.requestCalls)
	})

	t.Run("search failure", func(t *testing.T) {
		m := &mockRequester{searchErr: &overseerr.ServiceError{Op: "search", StatusCode: 500}}

		err := newDispatcher(m, Options{}).SubmitMovieRequest(context.Background(), "Dune")
		require.Error(t, err)
		assert.ErrorIs(t, err, overseerr.ErrRemoteService)
		assert.Empty(t, m.requestCalls)
	})
}

func TestSubmitTVRequest(t *testing.T) {
	tests := []struct {
		name     string
		policy   SeasonPolicy
		expected overseerr.RequestOptions
	}{
		{name: "all", policy: SeasonAll, expected: overseerr.RequestOptions{AllSeasons: true}},
		{name: "first", policy: SeasonFirst, expected: overseerr.RequestOptions{FirstSeason: true}},
		{name: "latest", policy: SeasonLatest, expected: overseerr.RequestOptions{LatestSeason: true}},
		{name: "unset defaults to latest", policy: "", expected: overseerr.RequestOptions{LatestSeason: true}},
		{name: "unknown defaults to latest", policy: "middle", expected: overseerr.RequestOptions{LatestSeason: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRequester{results: map[overseerr.MediaType][]overseerr.SearchResult{
				overseerr.MediaTypeTV: {{ID: 42, Name: "Example Show"}},
			}}

			err := newDispatcher(m, Options{}).SubmitTVRequest(context.Background(), "Example Show", tt.policy)
			require.NoError(t, err)
			require.Len(t, m.requestCalls, 1)
			assert.Equal(t, 42, m.requestCalls[0].mediaID)
			assert.Equal(t, overseerr.MediaTypeTV, m.requestCalls[0].kind)
			assert.Equal(t, tt.expected, m.requestCalls[0].opts)
		})
	}
}

func TestParseSeasonPolicy(t *testing.T) {
	assert.Equal(t, SeasonFirst, ParseSeasonPolicy("First"))
	assert.Equal(t, SeasonAll, ParseSeasonPolicy("all"))
	assert.Equal(t, SeasonLatest, ParseSeasonPolicy("latest"))
	assert.Equal(t, SeasonLatest, ParseSeasonPolicy(""))
	assert.Equal(t, SeasonLatest, ParseSeasonPolicy("bogus"))
}

func TestSubmitMusicRequest(t *testing.T) {
	t.Run("legacy server", func(t *testing.T) {
		m := &mockRequester{albums: []overseerr.Album{{ForeignAlbumID: "mbid-1"}, {ForeignAlbumID: "mbid-2"}}}

		err := newDispatcher(m, Options{Legacy: true}).SubmitMusicRequest(context.Background(), "Discovery")
		require.NoError(t, err)
		assert.Equal(t, []string{"mbid-1"}, m.musicCalls)
	})

	t.Run("no album found", func(t *testing.T) {
		m := &mockRequester{}

		err := newDispatcher(m, Options{Legacy: true}).SubmitMusicRequest(context.Background(), "Discovery")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, m.musicCalls)
	})

	t.Run("not available on current servers", func(t *testing.T) {
		m := &mockRequester{albums: []overseerr.Album{{ForeignAlbumID: "mbid-1"}}}

		err := newDispatcher(m, Options{}).SubmitMusicRequest(context.Background(), "Discovery")
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.Empty(t, m.musicCalls)
	})
}

func TestUpdateMediaStatus(t *testing.T) {
	movies := map[overseerr.MediaType][]overseerr.SearchResult{
		overseerr.MediaTypeMovie: {{ID: 100, Title: "Heat"}},
	}

	t.Run("updates the first matching request", func(t *testing.T) {
		m := &mockRequester{
			results: movies,
			requests: []overseerr.MediaRequest{
				{ID: 1, Media: overseerr.Media{TmdbID: 5}},
				{ID: 2, Media: overseerr.Media{TmdbID: 100}},
				{ID: 3, Media: overseerr.Media{TmdbID: 100}},
			},
		}

		err := newDispatcher(m, Options{}).UpdateMediaStatus(context.Background(), "Heat", "approved", overseerr.MediaTypeMovie)
		require.NoError(t, err)
		assert.Equal(t, []statusCall{{requestID: 2, action: overseerr.ActionApprove}}, m.statusUpdates)
	})

	t.Run("no matching request", func(t *testing.T) {
		m := &mockRequester{
			results:  movies,
			requests: []overseerr.MediaRequest{{ID: 1, Media: overseerr.Media{TmdbID: 5}}},
		}

		err := newDispatcher(m, Options{}).UpdateMediaStatus(context.Background(), "Heat", "decline", overseerr.MediaTypeMovie)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, m.statusUpdates)
	})

	t.Run("no search result", func(t *testing.T) {
		m := &mockRequester{requests: []overseerr.MediaRequest{{ID: 1, Media: overseerr.Media{TmdbID: 100}}}}

		err := newDispatcher(m, Options{}).UpdateMediaStatus(context.Background(), "Heat", "decline", overseerr.MediaTypeTV)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, m.listCalls)
		assert.Empty(t, m.statusUpdates)
	})

	t.Run("invalid status makes no calls", func(t *testing.T) {
		m := &mockRequester{results: movies}

		err := newDispatcher(m, Options{}).UpdateMediaStatus(context.Background(), "Heat", "available", overseerr.MediaTypeMovie)
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.Equal(t, 0, m.searchCalls)
		assert.Empty(t, m.statusUpdates)
	})

	t.Run("list failure", func(t *testing.T) {
		m := &mockRequester{results: movies, listErr: &overseerr.ServiceError{Op: "list requests", StatusCode: 502}}

		err := newDispatcher(m, Options{}).UpdateMediaStatus(context.Background(), "Heat", "approve", overseerr.MediaTypeMovie)
		assert.ErrorIs(t, err, overseerr.ErrRemoteService)
		assert.Empty(t, m.statusUpdates)
	})
}

func TestDispatch(t *testing.T) {
	results := map[overseerr.MediaType][]overseerr.SearchResult{
		overseerr.MediaTypeMovie: {{ID: 1}},
		overseerr.MediaTypeTV:    {{ID: 42}},
	}

	tests := []struct {
		name     string
		mock     *mockRequester
		call     Call
		expected Outcome
	}{
		{
			name:     "movie request",
			mock:     &mockRequester{results: results},
			call:     Call{Action: ActionMovieRequest, Name: "Dune"},
			expected: OutcomeSubmitted,
		},
		{
			name:     "tv request",
			mock:     &mockRequester{results: results},
			call:     Call{Action: ActionTVRequest, Name: "Example Show", Season: "all"},
			expected: OutcomeSubmitted,
		},
		{
			name:     "not found",
			mock:     &mockRequester{},
			call:     Call{Action: ActionMovieRequest, Name: "Nothing"},
			expected: OutcomeNotFound,
		},
		{
			name:     "remote failure",
			mock:     &mockRequester{searchErr: &overseerr.ServiceError{Op: "search", Err: errors.New("connection refused")}},
			call:     Call{Action: ActionTVRequest, Name: "Example Show"},
			expected: OutcomeFailed,
		},
		{
			name:     "unknown media type",
			mock:     &mockRequester{results: results},
			call:     Call{Action: ActionUpdateStatus, Name: "Dune", Status: "approve", MediaType: "book"},
			expected: OutcomeRejected,
		},
		{
			name:     "unknown action",
			mock:     &mockRequester{results: results},
			call:     Call{Action: ActionUnknown, Name: "Dune"},
			expected: OutcomeRejected,
		},
		{
			name:     "missing name",
			mock:     &mockRequester{results: results},
			call:     Call{Action: ActionMovieRequest},
			expected: OutcomeRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := newDispatcher(tt.mock, Options{}).Dispatch(context.Background(), tt.call)
			assert.Equal(t, tt.expected, outcome)
		})
	}
}

func TestDispatchDefaultSeason(t *testing.T) {
	m := &mockRequester{results: map[overseerr.MediaType][]overseerr.SearchResult{
		overseerr.MediaTypeTV: {{ID: 42}},
	}}
	d := newDispatcher(m, Options{DefaultSeason: SeasonFirst})

	assert.Equal(t, OutcomeSubmitted, d.Dispatch(context.Background(), Call{Action: ActionTVRequest, Name: "Example Show"}))
	assert.Equal(t, OutcomeSubmitted, d.Dispatch(context.Background(), Call{Action: ActionTVRequest, Name: "Example Show", Season: "all"}))

	require.Len(t, m.requestCalls, 2)
	assert.Equal(t, overseerr.RequestOptions{FirstSeason: true}, m.requestCalls[0].opts)
	assert.Equal(t, overseerr.RequestOptions{AllSeasons: true}, m.requestCalls[1].opts)
}

func TestParseAction(t *testing.T) {
	for action, name := range actionNames {
		parsed, err := ParseAction(name)
		require.NoError(t, err)
		assert.Equal(t, action, parsed)
		assert.Equal(t, name, action.String())
	}

	_, err := ParseAction("delete_everything")
	assert.Error(t, err)
	assert.Equal(t, "unknown", ActionUnknown.String())
}
