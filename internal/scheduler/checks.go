package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/domain"
	"github.com/leosinemaxx/jatour-engine/internal/modules/orchestrator"
)

// CheckRunner executes a proactive orchestration pass.
type CheckRunner interface {
	Run(ctx context.Context, req orchestrator.Request) (domain.OrchestrationResult, error)
}

type pendingCheck struct {
	itineraryID string
	at          time.Time
}

// CheckRegistry holds the next proactive check per user. It implements the
// orchestrator's CheckScheduler: booking a new check replaces any pending
// one for the same user, so there is at most one outstanding check per user.
//
// Due checks are executed by a periodic sweep rather than per-user timers;
// a sweep survives process restarts as long as the orchestrator re-books
// during each pass.
type CheckRegistry struct {
	mu      sync.Mutex
	pending map[string]pendingCheck
	clock   clock.Clock
	log     zerolog.Logger
}

// NewCheckRegistry creates an empty registry.
func NewCheckRegistry(clk clock.Clock, log zerolog.Logger) *CheckRegistry {
	return &CheckRegistry{
		pending: make(map[string]pendingCheck),
		clock:   clk,
		log:     log.With().Str("component", "check_registry").Logger(),
	}
}

// Schedule books the next check for a user, replacing any pending one.
func (r *CheckRegistry) Schedule(userID, itineraryID string, at time.Time) {
	r.mu.Lock()
	r.pending[userID] = pendingCheck{itineraryID: itineraryID, at: at}
	r.mu.Unlock()

	r.log.Debug().
		Str("user_id", userID).
		Str("itinerary_id", itineraryID).
		Time("at", at).
		Msg("Check scheduled")
}

// Cancel drops the pending check for a user.
func (r *CheckRegistry) Cancel(userID string) {
	r.mu.Lock()
	delete(r.pending, userID)
	r.mu.Unlock()
}

// PendingCount returns the number of users with a booked check.
func (r *CheckRegistry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// takeDue removes and returns all checks due at or before now.
func (r *CheckRegistry) takeDue(now time.Time) map[string]pendingCheck {
	r.mu.Lock()
	defer r.mu.Unlock()

	due := make(map[string]pendingCheck)
	for userID, check := range r.pending {
		if !check.at.After(now) {
			due[userID] = check
			delete(r.pending, userID)
		}
	}
	return due
}

// CheckSweepJob runs due proactive checks. Registered with the Scheduler on
// a short interval.
type CheckSweepJob struct {
	registry *CheckRegistry
	runner   CheckRunner
	timeout  time.Duration
	log      zerolog.Logger
}

// NewCheckSweepJob creates the sweep job. timeout bounds a single user's
// orchestration pass.
func NewCheckSweepJob(registry *CheckRegistry, runner CheckRunner, timeout time.Duration, log zerolog.Logger) *CheckSweepJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CheckSweepJob{
		registry: registry,
		runner:   runner,
		timeout:  timeout,
		log:      log.With().Str("job", "check_sweep").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *CheckSweepJob) Name() string {
	return "check_sweep"
}

// Run executes all due checks. One user's failure never blocks the others.
func (j *CheckSweepJob) Run() error {
	due := j.registry.takeDue(j.registry.clock.Now())
	if len(due) == 0 {
		return nil
	}

	j.log.Debug().Int("due", len(due)).Msg("Running due checks")

	for userID, check := range due {
		j.runOne(userID, check)
	}
	return nil
}

func (j *CheckSweepJob) runOne(userID string, check pendingCheck) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.runner.Run(ctx, orchestrator.Request{
		UserID:      userID,
		ItineraryID: check.itineraryID,
		Trigger:     domain.TriggerScheduledCheck,
	})
	if err != nil {
		j.log.Error().
			Err(err).
			Str("user_id", userID).
			Str("itinerary_id", check.itineraryID).
			Msg("Proactive check failed")
		return
	}

	riskLevel := ""
	if result.Report != nil {
		riskLevel = string(result.Report.RiskLevel)
	}
	j.log.Info().
		Str("user_id", userID).
		Str("itinerary_id", check.itineraryID).
		Str("risk_level", riskLevel).
		Int("alerts", len(result.Alerts)).
		Msg("Proactive check completed")
}
