package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const repositorySlug = "s0up4200/seerrbridge"

var checkOnly bool

// updateCmd replaces the running binary with the latest GitHub release
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update seerrbridge to the latest release",
	RunE:  runUpdate,
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seerrbridge %s (built %s, %s/%s)\n", version, buildTime, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only check whether an update is available")
	rootCmd.AddCommand(updateCmd, versionCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("cannot update a %q build: %w", version, err)
	}

	ctx := cmd.Context()
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
	if err != nil {
		return fmt.Errorf("failed to look up latest release: %w", err)
	}
	if !found {
		return errors.New("no release found for this platform")
	}

	if latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ seerrbridge %s is the latest version\n", current)
		return nil
	}

	fmt.Printf("New version available: %s (current %s)\n", latest.Version(), current)
	if checkOnly {
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Printf("✓ Updated to %s\n", latest.Version())
	return nil
}
