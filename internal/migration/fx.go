package migration

import (
	authdomain "github.com/smallbiznis/planora/internal/auth/domain"
	"github.com/smallbiznis/planora/internal/config"
	invdomain "github.com/smallbiznis/planora/internal/invitation/domain"
	orgdomain "github.com/smallbiznis/planora/internal/organization/domain"
	"github.com/smallbiznis/planora/internal/seed"
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
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned SQL migrations target postgres; other dialects
			// (dev and test setups) derive the schema from the models.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.Session{},
				&orgdomain.Organization{},
				&orgdomain.Membership{},
				&invdomain.Invitation{},
			); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultOrgAndUser {
			return seed.EnsureMainOrgAndAdmin(conn)
		}
		return seed.EnsureMainOrg(conn)
	}),
)
