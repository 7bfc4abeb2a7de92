// Package store is the persistence layer: a Mongo-collection-shaped facade
// (InsertOne/FindOne/Find().Sort().Skip().Limit()/UpdateOne/ReplaceOne/
// CountDocuments/CreateIndex) backed by GORM, since the pack's mongo-driver
// dependency is never actually exercised anywhere in the teacher's tree —
// GORM is the teacher's real persistence idiom, generalized here to the
// collection-shaped vocabulary the spec's Store interface uses.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/goldnightmare/goldservice/internal/config"
)

// Store owns the database connection pool and exposes one Collection per
// entity plus an aggregate query used by the admin dashboard.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool

	Users         *Collection[UserModel]
	AnalysisLogs  *Collection[AnalysisLogModel]
	DailySummaries *Collection[DailySummaryModel]
	AdminUsers    *Collection[AdminUserModel]
	GoldPrices    *Collection[GoldPriceModel]
}

// Open connects to the configured backend and starts the health-check loop.
func Open(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	var (
		dialect gorm.Dialector
	)
	switch cfg.Driver {
	case "postgres":
		dialect = postgres.Open(cfg.DSN())
	case "sqlite":
		dialect = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialect, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: failed to get sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	s := &Store{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "store")),

		Users:          newCollection[UserModel](db),
		AnalysisLogs:   newCollection[AnalysisLogModel](db),
		DailySummaries: newCollection[DailySummaryModel](db),
		AdminUsers:     newCollection[AdminUserModel](db),
		GoldPrices:     newCollection[GoldPriceModel](db),
	}

	go s.healthCheckLoop(30 * time.Second)

	s.logger.Info("store opened",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", maxOpen),
		zap.Int("max_idle_conns", maxIdle),
	)

	return s, nil
}

// Migrate creates tables then the required indices listed in this service's
// data-model section: users.user_id unique, users.email unique,
// (users.status, users.tier), analysis_logs.(user_id, created_at desc),
// daily_summaries.(user_id, date) unique.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&UserModel{}, &AnalysisLogModel{}, &DailySummaryModel{}, &AdminUserModel{}, &GoldPriceModel{},
	); err != nil {
		return fmt.Errorf("store: automigrate failed: %w", err)
	}

	type indexSpec struct {
		create func() error
	}
	indices := []indexSpec{
		{func() error { return s.Users.CreateIndex([]string{"email"}, true) }},
		{func() error { return s.Users.CreateIndex([]string{"status", "tier"}, false) }},
		{func() error { return s.AnalysisLogs.CreateIndex([]string{"user_id", "created_at"}, false) }},
		{func() error { return s.DailySummaries.CreateIndex([]string{"user_id", "date"}, true) }},
	}
	for _, idx := range indices {
		if err := idx.create(); err != nil {
			return fmt.Errorf("store: create index failed: %w", err)
		}
	}

	s.logger.Info("store migrated")
	return nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	return s.sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing store")
	return s.sqlDB.Close()
}

func (s *Store) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ping(ctx); err != nil {
			s.logger.Error("store health check failed", zap.Error(err))
		}
		cancel()
	}
}

// TransactionFunc runs inside a DB transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction runs fn inside a transaction.
func (s *Store) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// WithTransactionRetry retries fn on transient errors (deadlock,
// serialization failure, connection reset) with exponential backoff. No
// component calls it; AuthEngine serializes its quota increment with a
// per-user mutex instead.
func (s *Store) WithTransactionRetry(ctx context.Context, maxRetries int, fn TransactionFunc) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := s.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}
		s.logger.Warn("transaction failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
		backoff := time.Duration(1<<uint(i)) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("store: transaction failed after %d retries: %w", maxRetries, lastErr)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"deadlock", "serialization failure", "40001", "connection reset", "connection refused", "broken pipe", "lock timeout", "lock wait timeout", "bad connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// DashboardTotals is the scalar aggregate AdminQueries.dashboard() needs —
// computed with direct GORM count queries (users, users per tier, today's
// analyses and successes) rather than the Mongo-shaped facade, since it
// spans users and analysis_logs.
type DashboardTotals struct {
	TotalUsers     int64
	BasicUsers     int64
	PremiumUsers   int64
	VIPUsers       int64
	AnalysesToday  int64
	SuccessToday   int64
}

// Aggregate computes the dashboard totals as of today (UTC date string).
func (s *Store) Aggregate(ctx context.Context, today string) (DashboardTotals, error) {
	var out DashboardTotals

	if err := s.db.WithContext(ctx).Model(&UserModel{}).Count(&out.TotalUsers).Error; err != nil {
		return out, err
	}
	tierCounts := []struct {
		Tier  string
		Count int64
	}{}
	if err := s.db.WithContext(ctx).Model(&UserModel{}).
		Select("tier, count(*) as count").Group("tier").Scan(&tierCounts).Error; err != nil {
		return out, err
	}
	for _, tc := range tierCounts {
		switch tc.Tier {
		case "basic":
			out.BasicUsers = tc.Count
		case "premium":
			out.PremiumUsers = tc.Count
		case "vip":
			out.VIPUsers = tc.Count
		}
	}

	if err := s.db.WithContext(ctx).Model(&AnalysisLogModel{}).
		Where("date(created_at) = ?", today).Count(&out.AnalysesToday).Error; err != nil {
		return out, err
	}
	if err := s.db.WithContext(ctx).Model(&AnalysisLogModel{}).
		Where("date(created_at) = ? AND success = ?", today, true).Count(&out.SuccessToday).Error; err != nil {
		return out, err
	}

	return out, nil
}
