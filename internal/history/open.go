package history

import (
	"context"
	"fmt"

	"github.com/mcp-compliance-runner/internal/database"
	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/sirupsen/logrus"
)

// Open returns the store selected by cfg, or nil when history is disabled.
// Postgres schemas are migrated before the store is returned.
func Open(ctx context.Context, cfg domain.HistoryConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		logger.WithField("path", cfg.DSN).Debug("Opening SQLite history store")
		return NewSQLiteStore(cfg.DSN)
	case "postgres":
		if err := database.Migrate(ctx, cfg.DSN, logger); err != nil {
			return nil, err
		}
		logger.Debug("Opening PostgreSQL history store")
		return NewPostgresStoreFromURL(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}
