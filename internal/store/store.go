package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrReleased is returned when a released session is used again.
	ErrReleased = errors.New("store session already released")
)

// upsertBatchSize keeps a single INSERT below the bind variable limits of sqlite.
const upsertBatchSize = 500

var memDBSeq int64

// ConnectorFunc is used to inject a database connection method into New.
type ConnectorFunc func() (*gorm.DB, error)

// NewSQLiteConnector opens a sqlite database at path. An empty path, or
// ":memory:", opens a private in-memory database.
func NewSQLiteConnector(path string) ConnectorFunc {
	return func() (*gorm.DB, error) {
		dsn := path
		if dsn == "" || dsn == ":memory:" {
			dsn = fmt.Sprintf("file:mem-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), atomic.AddInt64(&memDBSeq, 1))
		} else {
			dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
		}

		return gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
	}
}

// NewPostgreSQLConnector opens a connection to a postgresql database, retrying
// a few times while the server comes up.
func NewPostgreSQLConnector(dsn string, log logging.Logger) ConnectorFunc {
	return func() (*gorm.DB, error) {
		var lastErr error
		for attempt := 1; attempt <= 5; attempt++ {
			log.Infof("connecting to postgres (attempt %d)", attempt)
			db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
				Logger:         logger.Default.LogMode(logger.Warn),
				TranslateError: true,
			})
			if err == nil {
				return db, nil
			}
			lastErr = err
			log.Errorf("failed to connect to postgres: %v", err)
			time.Sleep(2 * time.Second)
		}
		return nil, lastErr
	}
}

// Store owns the connection pool. Work is done through a Session.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	log   logging.Logger
}

// New connects and migrates the schema.
func New(connect ConnectorFunc, log logging.Logger) (*Store, error) {
	db, err := connect()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := db.AutoMigrate(&telemetry.Measurement{}, &User{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	return &Store{db: db, sqlDB: sqlDB, log: log}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Acquire checks out a dedicated connection for the caller. The returned
// Session must be released.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping connection: %w", err)
	}

	gdb := s.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	gdb.Statement.ConnPool = conn

	return &Session{db: gdb, conn: conn, log: s.log}, nil
}

// Session is bound to one pooled connection until Release.
type Session struct {
	db   *gorm.DB
	conn *sql.Conn
	log  logging.Logger

	once     sync.Once
	released bool
	mu       sync.Mutex
}

var _ telemetry.MeasurementStore = (*Session)(nil)

// Release returns the connection to the pool. It is safe to call more than once.
func (s *Session) Release() {
	s.once.Do(func() {
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()

		if err := s.conn.Close(); err != nil {
			s.log.Warnf("failed to release store connection: %v", err)
		}
	})
}

func (s *Session) tx(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, ErrReleased
	}
	return s.db.WithContext(ctx), nil
}

// UpsertMeasurements merges batch into the measurements table in one
// transaction. Unseen entry ids are inserted. For known ids only null columns
// are filled; a stored non-null value is never replaced.
func (s *Session) UpsertMeasurements(ctx context.Context, batch []telemetry.Measurement) error {
	rows := telemetry.MergeBatch(batch)
	if len(rows) == 0 {
		return nil
	}

	db, err := s.tx(ctx)
	if err != nil {
		return err
	}

	table := telemetry.Measurement{}.TableName()
	set := make(map[string]interface{}, telemetry.FieldCount)
	for _, k := range telemetry.AllFields() {
		col := k.Column()
		set[col] = gorm.Expr(fmt.Sprintf("COALESCE(%s.%s, excluded.%s)", table, col, col))
	}

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}},
			DoUpdates: clause.Assignments(set),
		}).CreateInBatches(&rows, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("upsert %d measurements: %w", len(rows), err)
		}
		return nil
	})
}

// QueryMeasurements returns up to limit rows, newest entry first. When field
// is not AnyField only rows carrying that field are returned. limit <= 0
// means no limit.
func (s *Session) QueryMeasurements(ctx context.Context, field telemetry.FieldKey, limit int) ([]telemetry.Measurement, error) {
	if field != telemetry.AnyField && !field.Valid() {
		return nil, fmt.Errorf("%w: %d", telemetry.ErrInvalidField, field)
	}

	db, err := s.tx(ctx)
	if err != nil {
		return nil, err
	}

	q := db.Order("entry_id DESC")
	if field.Valid() {
		q = q.Where(fmt.Sprintf("%s IS NOT NULL", field.Column()))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []telemetry.Measurement
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	return rows, nil
}

// CountMeasurements returns the number of stored rows.
func (s *Session) CountMeasurements(ctx context.Context) (int64, error) {
	db, err := s.tx(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Model(&telemetry.Measurement{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
