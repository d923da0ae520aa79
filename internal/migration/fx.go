package migration

import (
	"strings"

	"github.com/smallbiznis/invoicebook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run brings the schema up to date on startup when auto migration is enabled.
func Run(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		log.Info("schema migration disabled")
		return nil
	}

	dialect := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if dialect != "postgres" {
		log.Info("auto migrating schema", zap.String("type", dialect))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying migrations", zap.String("type", dialect))
	return RunMigrations(sqlDB)
}
