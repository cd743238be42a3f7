package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	planSession string
	planJSON    bool
)

var planCmd = &cobra.Command{
	Use:   "plan [message]",
	Short: "Run one planning message through the engine",
	Long: `Run one user message through the full stage loop: intake, planning,
search execution, reflection, and summary. The resulting state is committed
to the configured store, so repeated runs against the same session refine
the same trip.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planSession, "session", "default", "session the message belongs to")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the full response as JSON")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	message := strings.Join(args, " ")
	resp, err := rt.loop.HandleMessage(cmd.Context(), planSession, message)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if planJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, resp.Summary)
	fmt.Fprintf(out, "\nsession: %s  trace: %s\n", resp.SessionID, resp.TraceID)

	return nil
}
