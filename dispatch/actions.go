package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/s0up4200/seerrbridge/overseerr"
)

// Action identifies a user invocable action
type Action int

const (
	ActionUnknown Action = iota
	ActionMovieRequest
	ActionTVRequest
	ActionMusicRequest
	ActionUpdateStatus
)

var actionNames = map[Action]string{
	ActionMovieRequest: "submit_movie_request",
	ActionTVRequest:    "submit_tv_request",
	ActionMusicRequest: "submit_music_request",
	ActionUpdateStatus: "update_media_status",
}

// String returns the service name of the action
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps a service name onto an Action
func ParseAction(name string) (Action, error) {
	for action, n := range actionNames {
		if n == name {
			return action, nil
		}
	}
	return ActionUnknown, fmt.Errorf("unknown action %q", name)
}

// Call carries the arguments of one action invocation
type Call struct {
	Action    Action `json:"-"`
	Name      string `json:"name"`
	Season    string `json:"season,omitempty"`
	Status    string `json:"new_status,omitempty"`
	MediaType string `json:"type,omitempty"`
}

// Outcome summarises what happened to a dispatched call
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type handlerFunc func(ctx context.Context, call Call) error

// table builds the action dispatch table
func (d *Dispatcher) table() map[Action]handlerFunc {
	return map[Action]handlerFunc{
		ActionMovieRequest: func(ctx context.Context, call Call) error {
			return d.SubmitMovieRequest(ctx, call.Name)
		},
		ActionTVRequest: func(ctx context.Context, call Call) error {
			season := call.Season
			if season == "" {
				season = string(d.opts.DefaultSeason)
			}
			return d.SubmitTVRequest(ctx, call.Name, ParseSeasonPolicy(season))
		},
		ActionMusicRequest: func(ctx context.Context, call Call) error {
			return d.SubmitMusicRequest(ctx, call.Name)
		},
		ActionUpdateStatus: func(ctx context.Context, call Call) error {
			kind, err := overseerr.ParseMediaType(call.MediaType)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnsupported, err)
			}
			return d.UpdateMediaStatus(ctx, call.Name, call.Status, kind)
		},
	}
}

// Dispatch runs call through the dispatch table. Failures are logged and
// reported through the Outcome only; the caller never sees an error.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Outcome {
	log := d.logger.With().Str("action", call.Action.String()).Str("name", call.Name).Logger()

	handler, ok := d.handlers[call.Action]
	if !ok {
		log.Error().Msg("Unknown action")
		return OutcomeRejected
	}
	if call.Name == "" {
		log.Error().Msg("Action called without a name")
		return OutcomeRejected
	}

	err := handler(ctx, call)
	switch {
	case err == nil:
		return OutcomeSubmitted
	case errors.Is(err, ErrNotFound):
		log.Warn().Err(err).Msg("Nothing to act on")
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrUnsupported):
		log.Error().Err(err).Msg("Action rejected")
		return OutcomeRejected
	case errors.Is(err, overseerr.ErrRemoteService):
		log.Error().Err(err).Msg("Seerr call failed")
		return OutcomeFailed
	default:
		log.Error().Err(err).Msg("Action failed")
		return OutcomeFailed
	}
}
