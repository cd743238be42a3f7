package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionJSON bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage planning sessions",
	Long:  `Inspect, list, and clear the planning sessions held in the state store.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions persisted in the store",
	RunE:  runSessionList,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Delete a session from the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClear,
}

func init() {
	sessionShowCmd.Flags().BoolVar(&sessionJSON, "json", false, "print the raw state document")
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.loop.SessionState(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sessionJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	ti := st.TravelInfo
	fmt.Fprintf(out, "Session: %s\n", args[0])
	if ti.Origin != "" || ti.Destination != "" {
		fmt.Fprintf(out, "Trip: %s to %s\n", valueOr(ti.Origin, "?"), valueOr(ti.Destination, "?"))
	}
	if ti.StartDate != "" || ti.EndDate != "" {
		fmt.Fprintf(out, "Dates: %s until %s\n", valueOr(ti.StartDate, "?"), valueOr(ti.EndDate, "?"))
	}
	if len(ti.POI) > 0 {
		fmt.Fprintf(out, "Sights: %d suggested\n", len(ti.POI))
	}
	fmt.Fprintf(out, "Tasks: %d\n", len(st.Tasks))
	for _, task := range st.Tasks {
		label := task.Tool
		if label == "" {
			label = task.Intent
		}
		fmt.Fprintf(out, "  [%-11s] %s  (%s)\n", task.Status, label, task.TaskID)
	}

	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ids, err := rt.manager.StoredSessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(out, "No stored sessions.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}

	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.loop.ClearSession(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %q cleared.\n", args[0])

	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
