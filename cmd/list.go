package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"shellhost/internal/events"
)

// listCmd builds every configured shell in-process and prints one row per
// shell: what it enables, the resolved activation order and the services
// its container exposes.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the shells configured in the settings document",
	Long: `Loads the settings document, builds every configured shell and prints a
table with its resolved feature order and registered services. Shells that
fail to build are listed with their error instead of their services.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	publisher := events.NewPublisher()
	manager, err := newManager(cfg, publisher)
	if err != nil {
		return fmt.Errorf("initializing host: %w", err)
	}
	defer manager.Close()

	// Build failures must not abort listing; they become table rows.
	buildErr := manager.ReloadAll(cmd.Context())

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SHELL"),
		text.FgHiCyan.Sprint("STATE"),
		text.FgHiCyan.Sprint("FEATURES"),
		text.FgHiCyan.Sprint("SERVICES"),
	})

	for _, sc := range manager.AllShells() {
		t.AppendRow(table.Row{
			sc.ID(),
			manager.ShellState(sc.ID()),
			strings.Join(sc.FeatureOrder(), ", "),
			strings.Join(sc.Container().ServiceNames(), ", "),
		})
	}
	t.Render()

	if buildErr != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n",
			text.FgYellow.Sprint("⚠"), buildErr)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
}
