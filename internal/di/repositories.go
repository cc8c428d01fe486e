package di

import (
	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/cache"
	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/repository"
)

// InitializeRepositories creates the persistence layer on the open databases.
func InitializeRepositories(container *Container, clk clock.Clock, log zerolog.Logger) {
	conn := container.AppDB.Conn()

	container.BudgetRepo = repository.NewBudgetRepository(conn, log)
	container.ExpenseRepo = repository.NewExpenseRepository(conn, log)
	container.PreferenceRepo = repository.NewPreferenceRepository(conn, log)
	container.RuleRepo = repository.NewRuleRepository(conn, log)
	container.AlertRepo = repository.NewAlertRepository(conn, log)

	container.ResultCache = cache.NewSQLite(container.CacheDB.Conn(), clk)
}
