package http

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"hsrelay/internal/deliveries"
)

const deliveryWindow = 24 * time.Hour

// ConnectionProvider hands out the journal's database connection.
type ConnectionProvider interface {
	GetConnection() *gorm.DB
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string              `json:"status"`
	Timestamp  time.Time           `json:"timestamp"`
	DBStatus   string              `json:"db_status"`
	Deliveries *deliveries.Summary `json:"deliveries,omitempty"`
	Pending    int                 `json:"pending_requests"`
}

// HealthHandler reports database connectivity and recent delivery counts.
type HealthHandler struct {
	dbManager ConnectionProvider
	store     *deliveries.Store
	pending   func() int
	logger    *slog.Logger
}

// NewHealthHandler creates the handler. store and pending may be nil when
// the journal or the dispatcher are not wired.
func NewHealthHandler(dbManager ConnectionProvider, store *deliveries.Store, pending func() int, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		dbManager: dbManager,
		store:     store,
		pending:   pending,
		logger:    logger,
	}
}

// Show handles the health check endpoint
func (h *HealthHandler) Show(c *cartridge.Context) error {
	now := time.Now()
	dbStatus := h.databaseStatus()

	health := HealthStatus{
		Status:    "ok",
		Timestamp: now,
		DBStatus:  dbStatus,
	}

	if dbStatus == "ok" && h.store != nil {
		summary, err := h.store.Summarize(now.Add(-deliveryWindow))
		if err != nil {
			h.logger.Error("Failed to summarize deliveries", slog.Any("error", err))
			dbStatus = "error"
			health.DBStatus = dbStatus
		} else {
			health.Deliveries = &summary
		}
	}

	if h.pending != nil {
		health.Pending = h.pending()
	}

	if dbStatus == "error" {
		health.Status = "degraded"
	}

	return c.JSON(health)
}

func (h *HealthHandler) databaseStatus() string {
	if h.dbManager == nil {
		return "disabled"
	}

	db := h.dbManager.GetConnection()
	if db == nil {
		h.logger.Error("Database connection unavailable")
		return "error"
	}

	sqlDB, err := db.DB()
	if err != nil {
		h.logger.Error("Database connection error", slog.Any("error", err))
		return "error"
	}
	if err := sqlDB.Ping(); err != nil {
		h.logger.Error("Database ping failed", slog.Any("error", err))
		return "error"
	}
	return "ok"
}
