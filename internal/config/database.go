package config

import (
	"fmt"
	"time"

	"sacco-hub/internal/pkg/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// ConnectDatabase opens the database selected by DB_DRIVER
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	// Configure GORM logger based on mode
	level := gormlogger.Error
	if cfg.IsDev() {
		level = gormlogger.Info
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		db, err = OpenSQLite(cfg.Database.SQLitePath, level)
	default:
		db, err = openMySQL(cfg.Database, level)
	}
	if err != nil {
		return nil, err
	}

	// Set global DB instance
	DB = db

	logger.L().Infow("✅ Database connected successfully",
		"driver", cfg.Database.Driver,
		"host", cfg.Database.Host,
		"db", cfg.Database.DBName,
	)

	return db, nil
}

func openMySQL(d DatabaseConfig, level gormlogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(buildDSN(d)), gormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a pure-Go sqlite database file. Used for local development and tests.
func OpenSQLite(path string, level gormlogger.LogLevel) (*gorm.DB, error) {
	dsn := path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

func gormConfig(level gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// buildDSN returns the MySQL connection string
func buildDSN(d DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
	)
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck checks if database is healthy
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
