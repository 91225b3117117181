package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/sensor-dashboard/internal/logging"
)

var (
	// ErrStoreUnavailable is returned when neither live nor stored data can be served.
	ErrStoreUnavailable = errors.New("measurement store unavailable")
	ErrInvalidField     = errors.New("invalid sensor field")
)

// Origin tells where a result was computed from.
type Origin string

const (
	OriginLive  Origin = "live"
	OriginStore Origin = "store"
)

// Service orchestrates the upstream source and the local measurement cache.
type Service struct {
	source     FeedSource
	titles     FieldTitles
	queryLimit int
	log        logging.Logger
}

// NewService creates a new Service. titles are used whenever the upstream
// channel metadata is not available; queryLimit bounds store reads.
func NewService(source FeedSource, titles FieldTitles, queryLimit int, log logging.Logger) *Service {
	return &Service{
		source:     source,
		titles:     titles,
		queryLimit: queryLimit,
		log:        log,
	}
}

// Titles returns the configured field titles.
func (s *Service) Titles() FieldTitles {
	return s.titles
}

// Overview returns the overview of the most recent day. Live data is used
// when the upstream answers; it is merged into db before returning. On any
// upstream failure the overview is recomputed from db instead.
func (s *Service) Overview(ctx context.Context, db MeasurementStore) (OverviewSummary, Origin, error) {
	if db == nil {
		return OverviewSummary{}, "", ErrStoreUnavailable
	}

	summary, feed, err := FetchOverview(ctx, s.source, s.titles)
	if err == nil {
		s.persist(ctx, db, feed)
		return summary, OriginLive, nil
	}
	s.logFetchFailure("overview", err)

	summary, err = StoredOverview(ctx, db, s.titles, s.queryLimit)
	if err != nil {
		return OverviewSummary{}, "", err
	}
	return summary, OriginStore, nil
}

// Sensor returns the readings of one field, oldest first, with the same
// live-then-store policy as Overview.
func (s *Service) Sensor(ctx context.Context, db MeasurementStore, field FieldKey) ([]SensorReading, Origin, error) {
	if !field.Valid() {
		return nil, "", fmt.Errorf("%w: %d", ErrInvalidField, field)
	}
	if db == nil {
		return nil, "", ErrStoreUnavailable
	}

	feed, err := s.source.FieldFeed(ctx, field)
	if err == nil {
		s.persist(ctx, db, feed)
		return ConvertSensorData(feed.Feeds, field), OriginLive, nil
	}
	s.logFetchFailure(field.String(), err)

	readings, err := StoredSensor(ctx, db, field, s.queryLimit)
	if err != nil {
		return nil, "", err
	}
	return readings, OriginStore, nil
}

// Sync pulls the channel feed and merges it into db. It returns the number of
// rows handed to the store.
func (s *Service) Sync(ctx context.Context, db MeasurementStore) (int, error) {
	feed, err := s.source.ChannelFeed(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch channel feed from %s: %w", s.source.Name(), err)
	}
	return UpdateDatabase(ctx, db, feed)
}

func (s *Service) persist(ctx context.Context, db MeasurementStore, feed Feed) {
	n, err := UpdateDatabase(ctx, db, feed)
	if err != nil {
		// The live result is still good; the cache catches up on the next fetch.
		s.log.Errorf("failed to merge %d upstream entries into store: %v", len(feed.Feeds), err)
		return
	}
	s.log.Debugf("merged %d upstream entries into store", n)
}

func (s *Service) logFetchFailure(what string, err error) {
	s.log.WithField("source", s.source.Name()).
		Warnf("live fetch of %s failed, serving stored data: %v", what, err)
}

// FetchOverview pulls the channel feed and summarises it. The raw feed is
// returned so the caller can persist it.
func FetchOverview(ctx context.Context, src FeedSource, fallback FieldTitles) (OverviewSummary, Feed, error) {
	feed, err := src.ChannelFeed(ctx)
	if err != nil {
		return OverviewSummary{}, Feed{}, err
	}
	return SummarizeFeed(feed, fallback), feed, nil
}

// UpdateDatabase converts a raw feed and merges it into db in one transaction.
func UpdateDatabase(ctx context.Context, db MeasurementStore, feed Feed) (int, error) {
	rows, _ := MeasurementsFromFeed(feed.Feeds)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := db.UpsertMeasurements(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// StoredOverview recomputes the overview from the newest limit rows of db.
func StoredOverview(ctx context.Context, db MeasurementStore, titles FieldTitles, limit int) (OverviewSummary, error) {
	rows, err := db.QueryMeasurements(ctx, AnyField, limit)
	if err != nil {
		return OverviewSummary{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Summarize(titles, EntriesOldestFirst(rows)), nil
}

// StoredSensor returns up to limit stored readings of field, oldest first.
func StoredSensor(ctx context.Context, db MeasurementStore, field FieldKey, limit int) ([]SensorReading, error) {
	rows, err := db.QueryMeasurements(ctx, field, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ConvertSensorData(EntriesOldestFirst(rows), field), nil
}
