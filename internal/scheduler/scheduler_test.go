package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-dashboard/internal/logging"
	"github.com/i474232898/sensor-dashboard/internal/store"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

type staticSource struct {
	feed telemetry.Feed
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) ChannelFeed(context.Context) (telemetry.Feed, error) {
	return s.feed, nil
}

func (s staticSource) FieldFeed(context.Context, telemetry.FieldKey) (telemetry.Feed, error) {
	return s.feed, nil
}

func newTestService() *telemetry.Service {
	feed := telemetry.Feed{Feeds: []telemetry.FeedEntry{
		{EntryID: 1, CreatedAt: "2024-01-03T08:00:00Z", Field1: telemetry.StringValue("20")},
		{EntryID: 2, CreatedAt: "2024-01-03T08:01:00Z", Field2: telemetry.StringValue("40")},
	}}
	return telemetry.NewService(staticSource{feed: feed}, telemetry.FieldTitles{}, 10, logging.NewNopLogger())
}

func TestRunOnceReleasesStore(t *testing.T) {
	mem := store.NewMemoryStore(0)
	var released int32

	s := New(time.Minute, newTestService(), func(context.Context) (telemetry.MeasurementStore, func(), error) {
		return mem, func() { atomic.AddInt32(&released, 1) }, nil
	}, logging.NewNopLogger())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, mem.Len())
	require.Equal(t, int32(1), atomic.LoadInt32(&released))
}

func TestRunOnceWithoutStore(t *testing.T) {
	boom := errors.New("pool exhausted")
	s := New(time.Minute, newTestService(), func(context.Context) (telemetry.MeasurementStore, func(), error) {
		return nil, nil, boom
	}, logging.NewNopLogger())

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestStartRunsJob(t *testing.T) {
	mem := store.NewMemoryStore(0)
	s := New(time.Hour, newTestService(), func(context.Context) (telemetry.MeasurementStore, func(), error) {
		return mem, func() {}, nil
	}, logging.NewNopLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return mem.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartDisabled(t *testing.T) {
	s := New(0, newTestService(), nil, logging.NewNopLogger())
	require.NoError(t, s.Start())
	s.Stop()
}
