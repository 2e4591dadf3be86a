package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/karloscodes/cartridge"

	"hsrelay/internal/config"
	"hsrelay/internal/database"
	"hsrelay/internal/deliveries"
)

// openStore opens the configured journal database and runs migrations.
func openStore(cfg *config.Config, verbose bool) (*deliveries.Store, func(), error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = cartridge.NewLogger(cfg, nil)
	}

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		dbManager.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	cleanup := func() {
		dbManager.Close()
	}
	return deliveries.NewStore(dbManager.GetConnection()), cleanup, nil
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	unit := s[len(s)-1]
	switch unit {
	case 'd', 'w':
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration: %q", s)
		}
		days := n
		if unit == 'w' {
			days = n * 7
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	return d, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
