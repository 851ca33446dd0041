// Package progress tracks the stages of a reconciliation run and reports
// per-item completion percentages through the logger, so a long run over a
// large library shows where it is.
package progress

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ActivityType identifies the pipeline stage being tracked.
type ActivityType string

const (
	ActivityTypeShowData    ActivityType = "show-data"
	ActivityTypeEpisodeData ActivityType = "episode-data"
	ActivityTypeCompare     ActivityType = "compare"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Activity represents a trackable stage with a known number of items.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`    // e.g. "Collecting show data"
	Subtitle    string       `json:"subtitle"` // item currently processed
	Total       int          `json:"total"`
	Done        int          `json:"done"`
	Status      Status       `json:"status"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt"`
}

// Percent returns completion in the range 0-100.
func (a *Activity) Percent() float64 {
	if a.Total <= 0 {
		return 100
	}
	return float64(a.Done) / float64(a.Total) * 100
}

// Manager tracks and reports progress for all activities. It is safe for
// concurrent use by pipeline workers.
type Manager struct {
	activities map[string]*Activity
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewManager creates a new progress manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		activities: make(map[string]*Activity),
		logger:     logger.With().Str("component", "progress").Logger(),
	}
}

// StartActivity creates and starts tracking a new activity.
func (m *Manager) StartActivity(id string, activityType ActivityType, title string, total int) *Activity {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity := &Activity{
		ID:        id,
		Type:      activityType,
		Title:     title,
		Total:     total,
		Status:    StatusInProgress,
		StartedAt: time.Now(),
	}
	m.activities[id] = activity

	m.logger.Debug().
		Str("id", id).
		Str("type", string(activityType)).
		Int("total", total).
		Msg("Activity started")

	return activity
}

// Step records one finished item and logs the running percentage.
func (m *Manager) Step(id string, subtitle string) {
	m.mu.Lock()
	activity, exists := m.activities[id]
	if !exists {
		m.mu.Unlock()
		return
	}
	activity.Done++
	activity.Subtitle = subtitle
	percent := activity.Percent()
	title := activity.Title
	m.mu.Unlock()

	m.logger.Info().
		Str("item", subtitle).
		Msgf("%s: %s - %s%% complete", title, subtitle, formatPercent(percent))
}

// CompleteActivity marks an activity as completed.
func (m *Manager) CompleteActivity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusCompleted
	activity.CompletedAt = &now

	m.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Dur("duration", now.Sub(activity.StartedAt)).
		Msg("Activity completed")
}

// FailActivity marks an activity as failed.
func (m *Manager) FailActivity(id string, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusFailed
	activity.Subtitle = errorMsg
	activity.CompletedAt = &now

	m.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Str("error", errorMsg).
		Msg("Activity failed")
}

// GetActivity returns a copy of an activity by ID, or nil.
func (m *Manager) GetActivity(id string) *Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activity, exists := m.activities[id]
	if !exists {
		return nil
	}
	cp := *activity
	return &cp
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
