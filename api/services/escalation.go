package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/revocity/revocity/api/metrics"
	"github.com/revocity/revocity/api/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// escalationThresholds are the hours since creation at which a complaint
// reaches levels 1, 2 and 3.
var escalationThresholds = map[models.Priority][models.MaxEscalationLevel]float64{
	models.PriorityCritical: {4, 8, 12},
	models.PriorityHigh:     {12, 24, 48},
	models.PriorityMedium:   {24, 48, 72},
	models.PriorityLow:      {48, 96, 168},
}

// EscalationLevelFor returns the level a complaint of the given priority has
// earned after hoursElapsed. Unknown priorities use the medium thresholds.
func EscalationLevelFor(priority models.Priority, hoursElapsed float64) int {
	thresholds, ok := escalationThresholds[priority]
	if !ok {
		thresholds = escalationThresholds[models.PriorityMedium]
	}
	for level := models.MaxEscalationLevel; level >= 1; level-- {
		if hoursElapsed >= thresholds[level-1] {
			return level
		}
	}
	return 0
}

// EscalatedComplaint describes one promotion made by a sweep
type EscalatedComplaint struct {
	ID            uuid.UUID         `json:"id"`
	ComplaintCode string            `json:"complaint_id"`
	Priority      models.Priority   `json:"priority"`
	FromLevel     int               `json:"from_level"`
	ToLevel       int               `json:"to_level"`
	Department    models.Department `json:"assigned_department"`
	HoursElapsed  float64           `json:"hours_elapsed"`
}

// SweepResult summarizes one escalation pass
type SweepResult struct {
	Checked             int                  `json:"checked"`
	Escalated           int                  `json:"escalated"`
	Skipped             int                  `json:"skipped"`
	Failed              int                  `json:"failed"`
	EscalatedComplaints []EscalatedComplaint `json:"escalatedComplaints"`
}

// SweepLock lets one replica run a sweep at a time
type SweepLock interface {
	// Acquire returns a release func, or ok=false when another holder has the lock.
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// localSweepLock serializes sweeps inside one process
type localSweepLock struct {
	mu sync.Mutex
}

func (l *localSweepLock) Acquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// EscalationService promotes overdue unresolved complaints through the department chain
type EscalationService struct {
	store  ComplaintStore
	lock   SweepLock
	logger *zap.Logger
	cron   *cron.Cron
}

// NewEscalationService uses an in-process lock when lock is nil
func NewEscalationService(store ComplaintStore, lock SweepLock, logger *zap.Logger) *EscalationService {
	if lock == nil {
		lock = &localSweepLock{}
	}
	return &EscalationService{
		store:  store,
		lock:   lock,
		logger: logger,
	}
}

// Run evaluates every candidate complaint against now. A failure on one
// complaint is logged and counted; the rest of the batch still runs.
func (s *EscalationService) Run(ctx context.Context, now time.Time) (*SweepResult, error) {
	start := time.Now()

	candidates, err := s.store.ListEscalationCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation candidates: %w", err)
	}

	result := &SweepResult{EscalatedComplaints: []EscalatedComplaint{}}
	for i := range candidates {
		complaint := &candidates[i]
		result.Checked++

		if complaint.ComplaintStatus == models.ComplaintResolved {
			result.Skipped++
			continue
		}

		hours := now.Sub(complaint.CreatedAt).Hours()
		level := EscalationLevelFor(complaint.Priority, hours)
		if level <= complaint.EscalationLevel {
			result.Skipped++
			continue
		}

		department := models.DepartmentForLevel(level)
		written, err := s.store.Escalate(ctx, complaint.ID, level, department, now)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to escalate complaint",
				zap.String("complaint_id", complaint.ComplaintCode),
				zap.Int("level", level),
				zap.Error(err))
			continue
		}
		if !written {
			// Resolved or promoted by someone else since it was listed
			result.Skipped++
			continue
		}

		result.Escalated++
		result.EscalatedComplaints = append(result.EscalatedComplaints, EscalatedComplaint{
			ID:            complaint.ID,
			ComplaintCode: complaint.ComplaintCode,
			Priority:      complaint.Priority,
			FromLevel:     complaint.EscalationLevel,
			ToLevel:       level,
			Department:    department,
			HoursElapsed:  hours,
		})
		metrics.RecordEscalation(level)
		s.logger.Info("Complaint escalated",
			zap.String("complaint_id", complaint.ComplaintCode),
			zap.String("priority", string(complaint.Priority)),
			zap.Int("from_level", complaint.EscalationLevel),
			zap.Int("to_level", level),
			zap.String("department", string(department)))
	}

	metrics.RecordSweep(result.Failed, time.Since(start))
	return result, nil
}

// RunLocked runs a sweep only if the sweep lock is free. ran is false when
// another sweep holds the lock.
func (s *EscalationService) RunLocked(ctx context.Context, now time.Time) (result *SweepResult, ran bool, err error) {
	release, ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	defer release()

	result, err = s.Run(ctx, now)
	return result, true, err
}

// Start schedules sweeps with a standard five-field cron spec
func (s *EscalationService) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, ran, err := s.RunLocked(ctx, time.Now())
		if err != nil {
			s.logger.Error("Escalation sweep failed", zap.Error(err))
			return
		}
		if !ran {
			s.logger.Debug("Escalation sweep skipped, lock held elsewhere")
			return
		}
		s.logger.Info("Escalation sweep finished",
			zap.Int("checked", result.Checked),
			zap.Int("escalated", result.Escalated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	})
	if err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	return nil
}

// Stop waits for a running sweep to finish
func (s *EscalationService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
