// Package deliveries journals outbound HubSpot requests and their outcome.
package deliveries

import (
	"fmt"
	"net/url"
	"time"

	"gorm.io/gorm"
)

// Delivery is one outbound request attempt. The query string is never
// stored, it carries visitor identifiers.
type Delivery struct {
	ID         uint   `gorm:"primaryKey"`
	Kind       string `gorm:"index;size:32;not null"`
	Method     string `gorm:"size:8;not null"`
	Target     string `gorm:"not null"`
	StatusCode int
	Error      string
	DurationMs int64
	CreatedAt  time.Time `gorm:"index"`
}

// Failed reports whether the attempt errored or got a 4xx/5xx answer.
func (d Delivery) Failed() bool {
	return d.Error != "" || d.StatusCode >= 400
}

// TargetOf strips the query and fragment from rawURL.
func TargetOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// KindCount is the per-kind part of a Summary.
type KindCount struct {
	Kind   string `json:"kind"`
	Total  int64  `json:"total"`
	Failed int64  `json:"failed"`
}

// Summary aggregates deliveries since a point in time.
type Summary struct {
	Since  time.Time   `json:"since"`
	Total  int64       `json:"total"`
	Failed int64       `json:"failed"`
	Kinds  []KindCount `json:"kinds"`
}

// Store reads and writes the journal.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Record inserts d, stamping CreatedAt when unset.
func (s *Store) Record(d *Delivery) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	d.CreatedAt = d.CreatedAt.UTC()
	if err := s.db.Create(d).Error; err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Recent returns the newest deliveries first. An empty kind matches all.
func (s *Store) Recent(limit int, kind string) ([]Delivery, error) {
	var out []Delivery
	q := s.db.Order("created_at DESC, id DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

// Summarize counts deliveries per kind since the given time.
func (s *Store) Summarize(since time.Time) (Summary, error) {
	since = since.UTC()
	summary := Summary{Since: since, Kinds: []KindCount{}}

	err := s.db.Model(&Delivery{}).
		Select("kind, COUNT(*) AS total, SUM(CASE WHEN error <> '' OR status_code >= 400 THEN 1 ELSE 0 END) AS failed").
		Where("created_at >= ?", since).
		Group("kind").
		Order("kind").
		Scan(&summary.Kinds).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summarize deliveries: %w", err)
	}

	for _, k := range summary.Kinds {
		summary.Total += k.Total
		summary.Failed += k.Failed
	}
	return summary, nil
}

// Prune deletes deliveries created before cutoff in batches and returns the
// number of rows removed.
func (s *Store) Prune(cutoff time.Time, batchSize int) (int64, error) {
	if batchSize < 1 {
		batchSize = 1000
	}
	cutoff = cutoff.UTC()

	var total int64
	for {
		batch := s.db.Model(&Delivery{}).Select("id").Where("created_at < ?", cutoff).Limit(batchSize)
		result := s.db.Where("id IN (?)", batch).Delete(&Delivery{})
		if result.Error != nil {
			return total, fmt.Errorf("prune deliveries: %w", result.Error)
		}
		total += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return total, nil
		}
	}
}

// CountBefore returns how many deliveries Prune would remove for cutoff.
func (s *Store) CountBefore(cutoff time.Time) (int64, error) {
	var count int64
	if err := s.db.Model(&Delivery{}).Where("created_at < ?", cutoff.UTC()).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}
