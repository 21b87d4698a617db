// Package retention implements the usage-decay retention policy: a
// survival score per function, and a reaper that archives low-value,
// stale entries on a schedule.
package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

const (
	DefaultThreshold = 0.5
	DefaultGraceDays = 14

	usageWeight   = 5.0
	qualityWeight = 1.0

	defaultQualityScore = 50
)

// protectedTags can never be reaped, regardless of score.
var protectedTags = map[string]bool{
	"protected": true,
	"core":      true,
	"stable":    true,
}

// Scorer computes survival scores. The zero value is unusable; use
// NewScorer for defaults.
type Scorer struct {
	Threshold float64
	GraceDays int

	now func() time.Time
}

// NewScorer creates a scorer with the default threshold and grace period.
func NewScorer() *Scorer {
	return &Scorer{
		Threshold: DefaultThreshold,
		GraceDays: DefaultGraceDays,
		now:       time.Now,
	}
}

// Score computes the survival score: usage frequency (calls per day of
// age) weighted heavily, plus normalized quality. A fresh draft with no
// calls and low quality decays below threshold quickly; anything used
// often or of high quality survives.
func (s *Scorer) Score(rec *storage.FunctionRecord) float64 {
	daysActive := float64(s.daysSince(&rec.CreatedAt) + 1)
	usageFrequency := float64(rec.CallCount) / daysActive
	quality := float64(rec.QualityScore(defaultQualityScore)) / 100.0
	return usageFrequency*usageWeight + quality*qualityWeight
}

// IsCandidate reports whether rec is eligible for archival: not already
// terminal, not protected, inactive past the grace period, and scoring
// below threshold.
func (s *Scorer) IsCandidate(rec *storage.FunctionRecord) bool {
	if rec.Status == storage.StatusDeleted || rec.Status == storage.StatusArchived {
		return false
	}
	for _, tag := range rec.Tags {
		if protectedTags[tag] {
			return false
		}
	}

	lastActivity := rec.LastCalledAt
	if lastActivity == nil {
		lastActivity = &rec.CreatedAt
	}
	if s.daysSince(lastActivity) < s.GraceDays {
		return false
	}

	return s.Score(rec) < s.Threshold
}

func (s *Scorer) daysSince(t *time.Time) int {
	if t == nil || t.IsZero() {
		return 0
	}
	days := int(s.now().Sub(*t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Archiver soft-deletes a function; the reaper uses the same path as a
// manual archival.
type Archiver interface {
	Archive(ctx context.Context, name string) error
}

// Reaper scans the catalog and archives removal candidates.
type Reaper struct {
	store    *storage.Store
	scorer   *Scorer
	archiver Archiver
}

// NewReaper creates a reaper over the given store and archival path.
func NewReaper(store *storage.Store, scorer *Scorer, archiver Archiver) *Reaper {
	return &Reaper{store: store, scorer: scorer, archiver: archiver}
}

// Run executes one cleanup cycle and returns the number of functions
// archived. A scan failure aborts the cycle; a single archival failure
// is logged and does not abort the batch.
func (r *Reaper) Run(ctx context.Context) (int, error) {
	recs, err := r.store.ScanRetention(ctx)
	if err != nil {
		return 0, fmt.Errorf("retention scan failed: %w", err)
	}

	var candidates []string
	for _, rec := range recs {
		if r.scorer.IsCandidate(rec) {
			log.Printf("retention: candidate %q (score %.2f)", rec.Name, r.scorer.Score(rec))
			candidates = append(candidates, rec.Name)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	archived := 0
	for _, name := range candidates {
		if err := r.archiver.Archive(ctx, name); err != nil {
			log.Printf("Warning: retention failed to archive %q: %v", name, err)
			continue
		}
		archived++
	}
	log.Printf("retention: archived %d low-value functions", archived)
	return archived, nil
}

// Start runs a cleanup cycle immediately and then on every interval
// tick until ctx is cancelled. The timer is owned by the caller's
// supervisor via ctx; the loop never exits on its own.
func (r *Reaper) Start(ctx context.Context, interval time.Duration) {
	if _, err := r.Run(ctx); err != nil {
		log.Printf("Warning: retention cycle failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				log.Printf("Warning: retention cycle failed: %v", err)
			}
		}
	}
}
