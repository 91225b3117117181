package httpapi

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/store"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// Session is the request-scoped view of the store the handlers need.
type Session interface {
	telemetry.MeasurementStore
	CreateUser(ctx context.Context, login, passwordHash string) (store.User, error)
	FindUser(ctx context.Context, login string) (store.User, error)
	Release()
}

// SessionSource checks out a Session.
type SessionSource func(ctx context.Context) (Session, error)

// StoreSessions adapts a Store to a SessionSource.
func StoreSessions(s *store.Store) SessionSource {
	return func(ctx context.Context) (Session, error) {
		sess, err := s.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// MemorySessions serves measurements from mem and keeps users in the
// relational store.
func MemorySessions(mem *store.MemoryStore, users *store.Store) SessionSource {
	return func(ctx context.Context) (Session, error) {
		sess, err := users.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return memorySession{Session: sess, mem: mem}, nil
	}
}

type memorySession struct {
	*store.Session
	mem *store.MemoryStore
}

func (s memorySession) UpsertMeasurements(ctx context.Context, batch []telemetry.Measurement) error {
	return s.mem.UpsertMeasurements(ctx, batch)
}

func (s memorySession) QueryMeasurements(ctx context.Context, field telemetry.FieldKey, limit int) ([]telemetry.Measurement, error) {
	return s.mem.QueryMeasurements(ctx, field, limit)
}

const sessionKey = "store.session"

// scope acquires the session on first use and remembers the outcome.
type scope struct {
	acquire SessionSource
	log     logging.Logger

	once sync.Once
	sess Session
	err  error
}

func (s *scope) get(ctx context.Context) (Session, error) {
	s.once.Do(func() {
		s.sess, s.err = s.acquire(ctx)
		if s.err != nil {
			s.log.Errorf("failed to acquire store session: %v", s.err)
		}
	})
	return s.sess, s.err
}

func (s *scope) release() {
	// Blocks a late get from acquiring after the request ended.
	s.once.Do(func() { s.err = telemetry.ErrStoreUnavailable })
	if s.sess != nil {
		s.sess.Release()
	}
}

// SessionMiddleware packs a lazily acquired store session into the request
// and releases it once the handler chain returns, whatever the outcome.
func SessionMiddleware(acquire SessionSource, log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sc := &scope{acquire: acquire, log: log}
		c.Locals(sessionKey, sc)
		defer sc.release()
		return c.Next()
	}
}

// sessionFrom returns the request session. A failed acquisition is reported
// as telemetry.ErrStoreUnavailable.
func sessionFrom(c *fiber.Ctx) (Session, error) {
	sc, ok := c.Locals(sessionKey).(*scope)
	if !ok {
		return nil, telemetry.ErrStoreUnavailable
	}
	sess, err := sc.get(c.UserContext())
	if err != nil {
		return nil, telemetry.ErrStoreUnavailable
	}
	return sess, nil
}

// measurementStore is like sessionFrom but yields a nil store instead of an
// error, leaving the decision to the service.
func measurementStore(c *fiber.Ctx) telemetry.MeasurementStore {
	sess, err := sessionFrom(c)
	if err != nil {
		return nil
	}
	return sess
}
