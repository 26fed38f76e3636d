package db

import (
	"fmt"
	"log"
	"strings"

	"cyber_case_app_go/config"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the database selected by DB_DRIVER.
//   - sqlite: local file with WAL mode for concurrency
//   - libsql: hosted SQLite (Turso) through the libsql driver
//   - postgres: DATABASE_URL through pgx
func Initialize(cfg *config.Config) error {
	var err error

	// Determine log level based on environment
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	dialector, description, err := dialectorFor(cfg)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database connection established (%s)", description)
	return nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, string, error) {
	switch cfg.DBDriver {
	case "libsql":
		if cfg.TursoURL == "" {
			return nil, "", fmt.Errorf("TURSO_DATABASE_URL is required when DB_DRIVER=libsql")
		}
		dsn := cfg.TursoURL
		if cfg.TursoAuthToken != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn = dsn + sep + "authToken=" + cfg.TursoAuthToken
		}
		return sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn}), "libsql", nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, "", fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
		return postgres.Open(cfg.DatabaseURL), "postgres", nil
	default:
		// Enable WAL mode for better concurrency support
		return sqlite.Open(cfg.DBPath + "?_journal_mode=WAL"), "sqlite, WAL mode enabled", nil
	}
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
