// Package scheduler runs cron-scheduled outbound message jobs. Jobs persist
// to a JSON file so they survive restarts.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/sanitize"
)

const defaultCheckInterval = 30 * time.Second

// Sender delivers a scheduled message. The mailbox dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// Job is a recurring outbound message.
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Expr        string     `json:"expr"`
	PhoneNumber string     `json:"phoneNumber"`
	Message     string     `json:"message"`
	Enabled     bool       `json:"enabled"`
	CreatedAt   time.Time  `json:"created_at"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	filePath string
	sender   Sender
	interval time.Duration
	gron     *gronx.Gronx
	cancel   context.CancelFunc
}

func NewScheduler(dataDir string, sender Sender) (*Scheduler, error) {
	dir := filepath.Join(dataDir, "scheduler")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Scheduler{
		jobs:     make(map[string]*Job),
		filePath: filepath.Join(dir, "jobs.json"),
		sender:   sender,
		interval: defaultCheckInterval,
		gron:     gronx.New(),
	}
	s.load()
	return s, nil
}

// AddJob validates the cron expression, computes the first run time and
// persists the job.
func (s *Scheduler) AddJob(name, expr, phoneNumber, message string) (*Job, error) {
	if !s.gron.IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression: %s", expr)
	}
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, fmt.Errorf("phone number is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	job := &Job{
		ID:          fmt.Sprintf("job_%d", now.UnixNano()),
		Name:        name,
		Expr:        expr,
		PhoneNumber: phoneNumber,
		Message:     message,
		Enabled:     true,
		CreatedAt:   now.UTC(),
	}
	if next, err := gronx.NextTickAfter(expr, now, false); err == nil {
		job.NextRunAt = &next
	}

	s.jobs[job.ID] = job
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return job, nil
}

// RemoveJob deletes a job. Returns false when the id is unknown.
func (s *Scheduler) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	s.saveLocked()
	return true
}

// SetEnabled toggles a job without losing its schedule.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	job.Enabled = enabled
	if enabled {
		if next, err := gronx.NextTickAfter(job.Expr, time.Now(), false); err == nil {
			job.NextRunAt = &next
		}
	} else {
		job.NextRunAt = nil
	}
	return s.saveLocked()
}

// ListJobs returns jobs sorted by creation time.
func (s *Scheduler) ListJobs(includeDisabled bool) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !includeDisabled && !job.Enabled {
			continue
		}
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Start launches the scheduling loop. It stops when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	due := s.collectDue(now)
	for _, job := range due {
		err := s.sender.Send(ctx, job.PhoneNumber, job.Message)
		if err != nil {
			logger.WarnCF("scheduler", "Scheduled send failed", map[string]interface{}{
				"job":   job.ID,
				"to":    sanitize.MaskPhoneNumber(job.PhoneNumber),
				"error": err.Error(),
			})
		} else {
			logger.InfoCF("scheduler", "Scheduled message sent", map[string]interface{}{
				"job": job.ID,
				"to":  sanitize.MaskPhoneNumber(job.PhoneNumber),
			})
		}
		s.markRan(job.ID, now, err)
	}
}

// collectDue returns copies of jobs whose NextRunAt has passed.
func (s *Scheduler) collectDue(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, job := range s.jobs {
		if !job.Enabled || job.NextRunAt == nil {
			continue
		}
		if !job.NextRunAt.After(now) {
			due = append(due, *job)
		}
	}
	return due
}

func (s *Scheduler) markRan(id string, ranAt time.Time, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	stamp := ranAt.UTC()
	job.LastRunAt = &stamp
	job.LastError = ""
	if runErr != nil {
		job.LastError = runErr.Error()
	}
	if next, err := gronx.NextTickAfter(job.Expr, ranAt, false); err == nil {
		job.NextRunAt = &next
	} else {
		job.NextRunAt = nil
	}
	s.saveLocked()
}

func (s *Scheduler) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return
	}

	var items []Job
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}

	now := time.Now()
	for i := range items {
		job := &items[i]
		// Recompute schedules so downtime does not fire a backlog.
		if job.Enabled {
			if next, err := gronx.NextTickAfter(job.Expr, now, false); err == nil {
				job.NextRunAt = &next
			}
		}
		s.jobs[job.ID] = job
	}
}

func (s *Scheduler) saveLocked() error {
	items := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		items = append(items, *job)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0644)
}
