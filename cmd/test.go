package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:     "test",
	Short:   "Test connection to Seerr",
	Long:    `Test the connection to your Jellyseerr/Overseerr instance and display basic counters.`,
	PreRunE: initializeApp,
	RunE:    runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to Seerr at %s...\n", cfg.Seerr.BaseURL())

	// Connection is tested during client creation
	client, err := newSeerrClient()
	if err != nil {
		return err
	}
	fmt.Println("✓ Connection successful!")

	ctx := cmd.Context()
	totals, err := client.TotalRequestCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get request counts: %w", err)
	}
	issues, err := client.IssueCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get issue counts: %w", err)
	}

	fmt.Printf("\nSeerr Statistics:\n")
	fmt.Printf("- Total requests: %d (movies %d, tv %d)\n", totals.Total, totals.Movies, totals.TV)
	fmt.Printf("- Pending: %d, approved: %d, available: %d\n", totals.Pending, totals.Approved, totals.Available)
	fmt.Printf("- Open issues: %d of %d\n", issues.Open, issues.Total)

	fmt.Printf("\nWebhook receiver: %s\n", boolToStatus(cfg.Webhook.Enabled))
	fmt.Printf("MQTT: %s\n", boolToStatus(cfg.MQTT.Enabled))
	fmt.Printf("Music requests: %s\n", boolToStatus(cfg.Seerr.Legacy))

	return nil
}

func boolToStatus(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
