// Package dispatch turns user actions (request a movie, request a show,
// change a request's status) into calls against the Seerr client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/s0up4200/seerrbridge/overseerr"
)

var (
	// ErrNotFound is returned when a title resolves to no media or no request
	ErrNotFound = errors.New("no match found")
	// ErrInvalidStatus is returned for a status the server does not accept
	ErrInvalidStatus = errors.New("invalid request status")
	// ErrUnsupported is returned for actions the configured server variant lacks
	ErrUnsupported = errors.New("action not supported")
)

// SeasonPolicy selects which seasons a tv request targets
type SeasonPolicy string

const (
	SeasonFirst  SeasonPolicy = "first"
	SeasonLatest SeasonPolicy = "latest"
	SeasonAll    SeasonPolicy = "all"
)

// ParseSeasonPolicy maps user input to a policy, defaulting to latest
func ParseSeasonPolicy(s string) SeasonPolicy {
	switch SeasonPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case SeasonFirst:
		return SeasonFirst
	case SeasonAll:
		return SeasonAll
	default:
		return SeasonLatest
	}
}

// Options configures a Dispatcher
type Options struct {
	// Legacy enables the music album action of older servers
	Legacy bool
	// DefaultSeason applies to tv calls that name no season
	DefaultSeason SeasonPolicy
}

// Dispatcher resolves titles through search and issues the mutating call
type Dispatcher struct {
	client   overseerr.Requester
	logger   zerolog.Logger
	opts     Options
	handlers map[Action]handlerFunc
}

// New creates a Dispatcher around an already connected client
func New(client overseerr.Requester, logger zerolog.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		client: client,
		logger: logger.With().Str("component", "dispatch").Logger(),
		opts:   opts,
	}
	d.handlers = d.table()
	return d
}

// SubmitMovieRequest requests the top search hit for title
func (d *Dispatcher) SubmitMovieRequest(ctx context.Context, title string) error {
	match, err := d.resolve(ctx, title, overseerr.MediaTypeMovie)
	if err != nil {
		return err
	}

	if err := d.client.Request(ctx, match.ID, overseerr.MediaTypeMovie, overseerr.RequestOptions{}); err != nil {
		return fmt.Errorf("failed to request movie %q: %w", title, err)
	}

	d.logger.Info().Str("name", title).Int("tmdb_id", match.ID).Msg("Requested movie")
	return nil
}

// SubmitTVRequest requests the top search hit for title with the seasons
// selected by policy
func (d *Dispatcher) SubmitTVRequest(ctx context.Context, title string, policy SeasonPolicy) error {
	match, err := d.resolve(ctx, title, overseerr.MediaTypeTV)
	if err != nil {
		return err
	}

	var opts overseerr.RequestOptions
	switch policy {
	case SeasonFirst:
		opts.FirstSeason = true
	case SeasonAll:
		opts.AllSeasons = true
	default:
		policy = SeasonLatest
		opts.LatestSeason = true
	}

	if err := d.client.Request(ctx, match.ID, overseerr.MediaTypeTV, opts); err != nil {
		return fmt.Errorf("failed to request tv show %q: %w", title, err)
	}

	d.logger.Info().
		Str("name", title).
		Int("tmdb_id", match.ID).
		Str("season", string(policy)).
		Msg("Requested tv show")
	return nil
}

// SubmitMusicRequest requests the top album hit for title on legacy servers
func (d *Dispatcher) SubmitMusicRequest(ctx context.Context, title string) error {
	if !d.opts.Legacy {
		return fmt.Errorf("music requests: %w", ErrUnsupported)
	}

	albums, err := d.client.SearchMusicAlbum(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to search album %q: %w", title, err)
	}
	if len(albums) == 0 {
		return fmt.Errorf("no music album found for %q: %w", title, ErrNotFound)
	}

	if err := d.client.RequestMusic(ctx, albums[0].ForeignAlbumID); err != nil {
		return fmt.Errorf("failed to request album %q: %w", title, err)
	}

	d.logger.Info().Str("name", title).Str("album_id", albums[0].ForeignAlbumID).Msg("Requested album")
	return nil
}

// UpdateMediaStatus finds the request for title and moves it to newStatus.
// The first request whose media matches the top search hit wins.
func (d *Dispatcher) UpdateMediaStatus(ctx context.Context, title, newStatus string, kind overseerr.MediaType) error {
	action, err := overseerr.ParseRequestAction(newStatus)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	match, err := d.resolve(ctx, title, kind)
	if err != nil {
		return err
	}

	requests, err := d.client.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	var found *overseerr.MediaRequest
	for i := range requests {
		if requests[i].Media.TmdbID == match.ID {
			found = &requests[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("no request found for %q: %w", title, ErrNotFound)
	}

	if err := d.client.UpdateStatus(ctx, found.ID, action); err != nil {
		return fmt.Errorf("failed to update request %d: %w", found.ID, err)
	}

	d.logger.Info().
		Str("name", title).
		Int("request_id", found.ID).
		Str("status", string(action)).
		Msg("Updated media status")
	return nil
}

// resolve returns the top search hit for title
func (d *Dispatcher) resolve(ctx context.Context, title string, kind overseerr.MediaType) (overseerr.SearchResult, error) {
	results, err := d.client.Search(ctx, title, kind)
	if err != nil {
		return overseerr.SearchResult{}, fmt.Errorf("failed to search %s %q: %w", kind, title, err)
	}
	if len(results) == 0 {
		return overseerr.SearchResult{}, fmt.Errorf("no %s found for %q: %w", kind, title, ErrNotFound)
	}
	return results[0], nil
}
