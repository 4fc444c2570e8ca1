package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"simcollect/pkg/simcompanies"
	"simcollect/pkg/ui"
)

var endpointsCmd = &cobra.Command{
	Use:     "endpoints",
	Aliases: []string{"rooms"},
	Short:   "List the endpoints a session can poll",
	Long: `List the built-in chatroom endpoints together with any added or
overridden in the endpoints section of the configuration file.

Use the ids with 'simcollect collect --endpoints ZH,EN'.`,
	Args: cobra.NoArgs,
	RunE: runEndpoints,
}

func init() {
	rootCmd.AddCommand(endpointsCmd)
}

func runEndpoints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	catalog := simcompanies.NewCatalog(cfg.Endpoints)
	selected := make(map[string]bool)
	if chosen, err := catalog.Select(cfg.Collect.Endpoints, nil); err == nil {
		for _, e := range chosen {
			selected[e.ID] = true
		}
	}

	ui.PrintHighlight("Endpoints")
	fmt.Fprintln(ui.Output)

	w := tabwriter.NewWriter(ui.Output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSELECTED\tSOURCE\tURL")
	for _, e := range catalog.All() {
		source := "built-in"
		if _, ok := cfg.Endpoints[e.ID]; ok {
			source = "config"
		}
		mark := ""
		if selected[e.ID] {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, mark, source, e.URL)
	}
	return w.Flush()
}
