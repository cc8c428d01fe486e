// Package di wires the engine's components together.
package di

import (
	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/database"
	"github.com/leosinemaxx/jatour-engine/internal/events"
	"github.com/leosinemaxx/jatour-engine/internal/modules/alerts"
	"github.com/leosinemaxx/jatour-engine/internal/modules/burnrate"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
	"github.com/leosinemaxx/jatour-engine/internal/modules/geocluster"
	"github.com/leosinemaxx/jatour-engine/internal/modules/orchestrator"
	"github.com/leosinemaxx/jatour-engine/internal/modules/relevance"
	"github.com/leosinemaxx/jatour-engine/internal/reliability"
	"github.com/leosinemaxx/jatour-engine/internal/repository"
	"github.com/leosinemaxx/jatour-engine/internal/scheduler"
)

// Container holds every wired component. Fields are populated in stages:
// databases, then repositories, then services.
type Container struct {
	// Databases
	AppDB   *database.DB
	CacheDB *database.DB

	// Caches
	ResultCache *cache.SQLite

	// Repositories
	BudgetRepo     *repository.BudgetRepository
	ExpenseRepo    *repository.ExpenseRepository
	PreferenceRepo *repository.PreferenceRepository
	RuleRepo       *repository.RuleRepository
	AlertRepo      *repository.AlertRepository

	// Event bus
	EventBus *events.Bus

	// Analysis modules
	Analyzer     *burnrate.Analyzer
	Scorer       *relevance.Scorer
	Pipeline     *deals.Pipeline
	Clusterer    *geocluster.Engine
	AlertEngine  *alerts.Engine
	Orchestrator *orchestrator.Service

	// Scheduling
	CheckRegistry *scheduler.CheckRegistry

	// Reliability (nil when backups are not configured)
	BackupService *reliability.BackupService
}

// Close releases database handles. Safe on a partially built container.
func (c *Container) Close() {
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
	if c.AppDB != nil {
		c.AppDB.Close()
	}
}

// Databases returns the named database handles for backup and maintenance.
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"app":   c.AppDB,
		"cache": c.CacheDB,
	}
}
