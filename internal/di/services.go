package di

import (
	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clients/merchants"
	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/config"
	"github.com/leosinemaxx/jatour-engine/internal/events"
	"github.com/leosinemaxx/jatour-engine/internal/modules/alerts"
	"github.com/leosinemaxx/jatour-engine/internal/modules/burnrate"
	"github.com/leosinemaxx/jatour-engine/internal/modules/deals"
	"github.com/leosinemaxx/jatour-engine/internal/modules/geocluster"
	"github.com/leosinemaxx/jatour-engine/internal/modules/orchestrator"
	"github.com/leosinemaxx/jatour-engine/internal/modules/relevance"
	"github.com/leosinemaxx/jatour-engine/internal/notify"
	"github.com/leosinemaxx/jatour-engine/internal/scheduler"
)

// InitializeServices builds the analysis modules and the orchestrator on top
// of the repositories. Requires InitializeRepositories to have run.
func InitializeServices(container *Container, cfg *config.Config, clk clock.Clock, log zerolog.Logger) {
	container.EventBus = events.NewBus(log)

	container.Analyzer = burnrate.NewAnalyzer(clk, log)
	container.Scorer = relevance.NewScorer(clk, log)
	container.Clusterer = geocluster.NewEngine(log)

	sources := make([]deals.Source, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, merchants.NewClient(merchants.Config{
			Name:    feed.Name,
			BaseURL: feed.URL,
			APIKey:  cfg.FeedAPIKey,
			Timeout: cfg.FeedTimeout,
		}, container.ResultCache, log))
	}
	container.Pipeline = deals.NewPipeline(sources, container.Scorer, clk, log)

	notifier := notify.NewMulti(
		notify.NewLogNotifier(log),
		notify.NewEventNotifier(container.EventBus),
	)
	gate := alerts.NewCooldownGate(container.ResultCache, clk)
	container.AlertEngine = alerts.NewEngine(gate, container.AlertRepo, notifier, clk, log)

	container.CheckRegistry = scheduler.NewCheckRegistry(clk, log)

	container.Orchestrator = orchestrator.NewService(orchestrator.Config{
		Budgets:   NewBudgetReaderAdapter(container.BudgetRepo),
		Expenses:  container.ExpenseRepo,
		Prefs:     container.PreferenceRepo,
		Rules:     container.RuleRepo,
		Analyzer:  container.Analyzer,
		Alerts:    container.AlertEngine,
		Pipeline:  container.Pipeline,
		Clusterer: container.Clusterer,
		Cache:     container.ResultCache,
		Scheduler: container.CheckRegistry,
		Clock:     clk,
		Log:       log,
	})
}
