package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/types"
	"github.com/pathwise/pathwise-backend/internal/utils"
)

// DatabaseService owns the local snapshot database. Postgres is the
// deployment driver; sqlite keeps local development dependency-free.
type DatabaseService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
	serviceLog := log.With("service", "DatabaseService")

	driver := utils.GetEnv("DB_DRIVER", "sqlite", log)

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "pathwise", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

		serviceLog.Info("Connecting to Postgres...")
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "pathwise.db", log)
		serviceLog.Info("Opening sqlite database...", "path", path)
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		serviceLog.Error("Failed to open database", "driver", driver, "error", err)
		return nil, fmt.Errorf("open database (%s): %w", driver, err)
	}

	return &DatabaseService{db: db, log: serviceLog}, nil
}

func (s *DatabaseService) DB() *gorm.DB { return s.db }

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating snapshot tables...")
	if err := s.db.AutoMigrate(
		&types.ProgressSnapshot{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
