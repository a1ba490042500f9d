package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sujalbistaa/polls/internal/logging"
	"github.com/sujalbistaa/polls/internal/models"
)

// sqlitePragmas are applied to every SQLite connection. Foreign keys are
// needed for choices to cascade with their poll.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Init opens a GORM connection for a DATABASE_URL of the form
// postgres://... or sqlite://<path>.
func Init(dbURL string, logger *zap.SugaredLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	sqliteDB := false

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(dbURL)
		logger.Infow("connecting to database", "driver", "postgres")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := SQLiteDSN(strings.TrimPrefix(dbURL, "sqlite://"))
		dialector = sqlite.Open(dsn)
		sqliteDB = true
		logger.Infow("connecting to database", "driver", "sqlite", "dsn", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL prefix: must start with 'postgres://' or 'sqlite://'")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormLogger(logger).LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if sqliteDB {
		// SQLite allows a single writer; in-memory databases are per connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	logger.Info("database connection established")
	return db, nil
}

// SQLiteDSN appends the connection pragmas to a SQLite path.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

// Migrate creates or updates the poll tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
