package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"hsrelay/internal/config"
	"hsrelay/internal/deliveries"
)

// DBManager wraps cartridge's sqlite.Manager with the delivery journal's
// migrations.
type DBManager struct {
	*sqlite.Manager
	path   string
	logger *slog.Logger
}

// NewDBManager creates a manager for the configured database file.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	path := cfg.GetDatabasePath()
	sqliteCfg := sqlite.Config{
		Path:         path,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		Manager: sqlite.NewManager(sqliteCfg),
		path:    path,
		logger:  logger,
	}
}

// Init creates the storage directory and opens the connection.
func (dm *DBManager) Init() error {
	if dir := filepath.Dir(dm.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory: %w", err)
		}
	}
	_, err := dm.Manager.Connect()
	return err
}

// MigrateDatabase creates or updates the journal tables.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(Models()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("WAL checkpoint after migration failed", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}

// Models lists every table the application owns.
func Models() []any {
	return []any{
		&deliveries.Delivery{},
	}
}
