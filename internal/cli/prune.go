package cli

import (
	"fmt"
	"time"

	"hsrelay/internal/config"
)

const pruneBatchSize = 1000

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.store == nil {
		cfg := config.GetConfig()
		c.days = cfg.DeliveryRetentionDays
		store, cleanup, err := openStore(cfg, c.globals.Verbose)
		if err != nil {
			return err
		}
		defer cleanup()
		c.store = store
	}

	retention := time.Duration(c.days) * 24 * time.Hour
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return err
		}
		retention = d
	}
	if retention <= 0 {
		return fmt.Errorf("retention must be positive: pass --older-than or set HSRELAY_DELIVERY_RETENTION_DAYS")
	}

	cutoff := time.Now().Add(-retention)

	if c.DryRun {
		count, err := c.store.CountBefore(cutoff)
		if err != nil {
			return err
		}
		return c.report(count, cutoff, true)
	}

	deleted, err := c.store.Prune(cutoff, pruneBatchSize)
	if err != nil {
		return err
	}
	return c.report(deleted, cutoff, false)
}

func (c *PruneCommand) report(count int64, cutoff time.Time, dryRun bool) error {
	if c.globals.JSON {
		return writeJSON(c.out, map[string]any{
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
			"count":   count,
			"dry_run": dryRun,
		})
	}
	if dryRun {
		fmt.Fprintf(c.out, "Would prune %d deliveries older than %s\n", count, cutoff.UTC().Format(time.RFC3339))
		return nil
	}
	fmt.Fprintf(c.out, "Pruned %d deliveries older than %s\n", count, cutoff.UTC().Format(time.RFC3339))
	return nil
}
