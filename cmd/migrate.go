package cmd

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-clover-pos/migrations"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(_ *cobra.Command, _ []string) {
		runMigration("up", func(m *migrate.Migrate) error { return m.Up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one step unless --steps is given)",
	Run: func(_ *cobra.Command, _ []string) {
		steps := migrateSteps
		if steps <= 0 {
			steps = 1
		}
		runMigration("down", func(m *migrate.Migrate) error { return m.Steps(-steps) })
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")
}

func runMigration(direction string, fn func(m *migrate.Migrate) error) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)
	defer db.Close()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load embedded migrations")
	}
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up migrations")
	}

	l := logrus.WithField("direction", direction)
	if err := fn(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			l.Info("Schema already up to date")
			return
		}
		l.WithError(err).Fatal("Migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		l.WithError(err).Warn("Could not read schema version")
		return
	}
	l.WithField("version", version).WithField("dirty", dirty).Info("Migration completed")
}
