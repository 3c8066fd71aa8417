package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/domain/repositories"
)

var _ repositories.TranslationLogRepository = (*TranslationLogRepository)(nil)

// Options tunes the connection pool
type Options struct {
	LogLevel string
	MaxOpen  int
	MaxIdle  int
}

// TranslationLogRepository appends pipeline pass records to Postgres through gorm
type TranslationLogRepository struct {
	gdb    *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
}

// NewTranslationLogRepository opens the database, pings it and migrates the log table
func NewTranslationLogRepository(ctx context.Context, databaseURL string, opts Options, log *zap.Logger) (*TranslationLogRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}

	gdb, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(resolveGormLogLevel(opts.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}
	return newTranslationLogRepository(ctx, gdb, opts, log)
}

func newTranslationLogRepository(ctx context.Context, gdb *gorm.DB, opts Options, log *zap.Logger) (*TranslationLogRepository, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}

	maxOpen := opts.MaxOpen
	if maxOpen <= 0 {
		maxOpen = 8
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(opts.MaxIdle, maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(&entities.TranslationLog{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate translation log: %w", err)
	}

	log.Info("Connected to Postgres translation log")
	return &TranslationLogRepository{gdb: gdb, sqlDB: sqlDB, logger: log}, nil
}

// Record implements repositories.TranslationLogRepository
func (r *TranslationLogRepository) Record(ctx context.Context, entry *entities.TranslationLog) error {
	if entry == nil {
		return errors.New("translation log cannot be nil")
	}
	if entry.RequestID == "" {
		return errors.New("translation log request ID cannot be empty")
	}
	if err := r.gdb.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert translation log %s: %w", entry.RequestID, err)
	}
	return nil
}

// BySession returns the records of one streaming session in chunk order
func (r *TranslationLogRepository) BySession(ctx context.Context, sessionID string) ([]entities.TranslationLog, error) {
	var logs []entities.TranslationLog
	err := r.gdb.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("query translation logs for session %s: %w", sessionID, err)
	}
	return logs, nil
}

// Close releases the connection pool
func (r *TranslationLogRepository) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func resolveGormLogLevel(appLogLevel string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(appLogLevel)) {
	case "debug":
		return logger.Info
	case "info", "warn", "":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
