package migration

import (
	"github.com/smartkeys/keyserver/internal/config"
	licensedomain "github.com/smartkeys/keyserver/internal/license/domain"
	releasedomain "github.com/smartkeys/keyserver/internal/release/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// The versioned migrations target postgres. Development databases
		// on other engines get the schema from the models directly.
		return conn.AutoMigrate(
			&licensedomain.License{},
			&licensedomain.Activation{},
			&releasedomain.Release{},
		)
	}),
)
