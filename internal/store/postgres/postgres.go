// Package postgres is the server-side storage backend. It implements the
// same repositories as the embedded SQLite store on top of gorm.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abhisek/intervue/internal/store"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Backend implements store.Backend on PostgreSQL.
type Backend struct {
	db *gorm.DB
}

var _ store.Backend = (*Backend)(nil)

// Open connects to dsn, migrates the schema and creates the global
// sequence used to order the event logs.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*Backend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	b := &Backend{db: db}
	if err := b.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) migrate(ctx context.Context) error {
	db := b.db.WithContext(ctx)
	err := db.AutoMigrate(
		&sessionModel{},
		&qaPairModel{},
		&fingerprintModel{},
		&reportModel{},
		&llmEventModel{},
		&sessionEventModel{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS global_sequence").Error; err != nil {
		return fmt.Errorf("create sequence: %w", err)
	}
	return nil
}

// DB exposes the gorm handle for raw queries.
func (b *Backend) DB() *gorm.DB { return b.db }

// Close closes the underlying pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) SessionRepo() store.SessionRepo         { return &sessionRepo{db: b.db} }
func (b *Backend) TurnRepo() store.TurnRepo               { return &turnRepo{db: b.db} }
func (b *Backend) FingerprintRepo() store.FingerprintRepo { return &fingerprintRepo{db: b.db} }
func (b *Backend) ReportRepo() store.ReportRepo           { return &reportRepo{db: b.db} }
func (b *Backend) EventRepo() store.EventRepo             { return &eventRepo{db: b.db} }

// nextSequence draws from the shared sequence. Postgres sequences are
// atomic across connections, so no process-level lock is needed.
func nextSequence(ctx context.Context, db *gorm.DB) (int64, error) {
	var seq int64
	if err := db.WithContext(ctx).Raw("SELECT nextval('global_sequence')").Scan(&seq).Error; err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
