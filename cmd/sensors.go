package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/seerrbridge/sensor"
)

// sensorsCmd polls every sensor once and prints the readings
var sensorsCmd = &cobra.Command{
	Use:     "sensors",
	Short:   "Poll Seerr once and print all sensor readings",
	PreRunE: initializeApp,
	RunE:    runSensors,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
}

func runSensors(cmd *cobra.Command, args []string) error {
	client, err := newSeerrClient()
	if err != nil {
		return err
	}

	set := sensor.NewSet(client, logger)
	set.RefreshAll(cmd.Context())
	set.Wait()

	fmt.Print(sensor.NewConsoleFormatter().FormatSensors(set.Sensors()))
	return nil
}
