package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/seerrbridge/dispatch"
	"github.com/s0up4200/seerrbridge/overseerr"
)

var (
	seasonFlag string
	statusFlag string
	typeFlag   string
)

// requestCmd groups the request submission commands
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Submit a media request to Seerr",
}

var requestMovieCmd = &cobra.Command{
	Use:     "movie <name>",
	Short:   "Request the best matching movie",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd.Context(), args, func(ctx context.Context, d *dispatch.Dispatcher, name string) error {
			return d.SubmitMovieRequest(ctx, name)
		})
	},
}

var requestTVCmd = &cobra.Command{
	Use:     "tv <name>",
	Short:   "Request the best matching tv show",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		season := seasonFlag
		if season == "" {
			season = cfg.Seerr.Season
		}
		policy := dispatch.ParseSeasonPolicy(season)
		return runRequest(cmd.Context(), args, func(ctx context.Context, d *dispatch.Dispatcher, name string) error {
			return d.SubmitTVRequest(ctx, name, policy)
		})
	},
}

var requestMusicCmd = &cobra.Command{
	Use:     "music <name>",
	Short:   "Request the best matching album (legacy servers only)",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd.Context(), args, func(ctx context.Context, d *dispatch.Dispatcher, name string) error {
			return d.SubmitMusicRequest(ctx, name)
		})
	},
}

// statusCmd moves an existing request to a new status
var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Approve, decline or reset the request for a title",
	Long: `Find the request for the best matching title and change its status.

Valid statuses are approve, decline and pending.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := overseerr.ParseMediaType(typeFlag)
		if err != nil {
			return err
		}
		return runRequest(cmd.Context(), args, func(ctx context.Context, d *dispatch.Dispatcher, name string) error {
			return d.UpdateMediaStatus(ctx, name, statusFlag, kind)
		})
	},
}

func init() {
	requestTVCmd.Flags().StringVarP(&seasonFlag, "season", "s", "", "seasons to request: first, latest or all (default from config)")

	statusCmd.Flags().StringVar(&statusFlag, "status", "", "new status: approve, decline or pending")
	statusCmd.Flags().StringVarP(&typeFlag, "type", "t", "movie", "media type: movie or tv")
	_ = statusCmd.MarkFlagRequired("status")

	requestCmd.AddCommand(requestMovieCmd, requestTVCmd, requestMusicCmd)
	rootCmd.AddCommand(requestCmd, statusCmd)
}

type requestFunc func(ctx context.Context, d *dispatch.Dispatcher, name string) error

func runRequest(ctx context.Context, args []string, fn requestFunc) error {
	name := strings.Join(args, " ")

	d, err := newDispatcher()
	if err != nil {
		return err
	}

	if err := fn(ctx, d, name); err != nil {
		if errors.Is(err, dispatch.ErrNotFound) {
			fmt.Printf("✗ Nothing found for %q\n", name)
			return nil
		}
		return err
	}

	fmt.Printf("✓ Done: %s\n", name)
	return nil
}
