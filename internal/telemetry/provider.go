package telemetry

import (
	"context"
)

// FeedSource abstracts the upstream channel API.
type FeedSource interface {
	Name() string
	// ChannelFeed returns the recent entries of every field.
	ChannelFeed(ctx context.Context) (Feed, error)
	// FieldFeed returns the recent entries of a single field.
	FieldFeed(ctx context.Context, field FieldKey) (Feed, error)
}

// MeasurementStore is the contract the request-scoped store session must satisfy.
type MeasurementStore interface {
	// UpsertMeasurements inserts unseen entries and fills null fields of known
	// ones. Known non-null values are never overwritten.
	UpsertMeasurements(ctx context.Context, batch []Measurement) error
	// QueryMeasurements returns rows newest first. With a field other than
	// AnyField only rows where that field is non-null are returned.
	QueryMeasurements(ctx context.Context, field FieldKey, limit int) ([]Measurement, error)
}
