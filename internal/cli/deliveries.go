package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"hsrelay/internal/config"
	"hsrelay/internal/deliveries"
)

// Execute implements the go-flags Commander interface for DeliveriesCommand.
func (c *DeliveriesCommand) Execute(args []string) error {
	if c.store == nil {
		store, cleanup, err := openStore(config.GetConfig(), c.globals.Verbose)
		if err != nil {
			return err
		}
		defer cleanup()
		c.store = store
	}

	if c.Summary {
		return c.executeSummary()
	}

	rows, err := c.store.Recent(c.Limit, c.Kind)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return writeJSON(c.out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "No deliveries recorded.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tMETHOD\tSTATUS\tDURATION\tTARGET\tERROR")
	for _, d := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dms\t%s\t%s\n",
			d.CreatedAt.Format(time.RFC3339), d.Kind, d.Method, d.StatusCode, d.DurationMs, d.Target, d.Error)
	}
	return w.Flush()
}

func (c *DeliveriesCommand) executeSummary() error {
	window, err := parseDuration(c.Since)
	if err != nil {
		return err
	}

	summary, err := c.store.Summarize(time.Now().Add(-window))
	if err != nil {
		return err
	}

	if c.globals.JSON {
		return writeJSON(c.out, summary)
	}
	printSummary(c, summary)
	return nil
}

func printSummary(c *DeliveriesCommand, summary deliveries.Summary) {
	fmt.Fprintf(c.out, "Since %s: %d deliveries, %d failed\n",
		summary.Since.Format(time.RFC3339), summary.Total, summary.Failed)
	for _, k := range summary.Kinds {
		fmt.Fprintf(c.out, "  %-18s %6d total %6d failed\n", k.Kind, k.Total, k.Failed)
	}
}
