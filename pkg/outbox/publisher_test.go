package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/inventory-service/pkg/cloudevents"
	"github.com/retail-platform/inventory-service/pkg/logging"
)

type fakeRepo struct {
	events       []*OutboxEvent
	published    []string
	retried      []string
	findErr      error
	markErr      error
	publishedMap map[string]bool
}

func newFakeRepo(events ...*OutboxEvent) *fakeRepo {
	return &fakeRepo{events: events, publishedMap: make(map[string]bool)}
}

func (f *fakeRepo) Save(ctx context.Context, event *OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeRepo) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	unpublished := make([]*OutboxEvent, 0)
	for _, e := range f.events {
		if !f.publishedMap[e.ID] {
			unpublished = append(unpublished, e)
		}
		if len(unpublished) == limit {
			break
		}
	}
	return unpublished, nil
}

func (f *fakeRepo) MarkPublished(ctx context.Context, eventID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.publishedMap[eventID] = true
	f.published = append(f.published, eventID)
	return nil
}

func (f *fakeRepo) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	f.retried = append(f.retried, eventID)
	return nil
}

func (f *fakeRepo) DeletePublished(ctx context.Context, olderThan int64) error { return nil }

func (f *fakeRepo) GetByID(ctx context.Context, eventID string) (*OutboxEvent, error) {
	for _, e := range f.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error) {
	return nil, nil
}

type fakeSink struct {
	published []string
	failFor   map[string]error
}

func (f *fakeSink) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	if err := f.failFor[event.ID]; err != nil {
		return err
	}
	f.published = append(f.published, event.ID)
	return nil
}

func testEvent(t *testing.T, aggregateID string) *OutboxEvent {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceInventory)
	ce := factory.CreateEvent(context.Background(), cloudevents.InventoryAdjusted, "inventory/PRODUCT/"+aggregateID, map[string]int{"delta": 1})
	event, err := NewOutboxEventFromCloudEvent(aggregateID, "Inventory", "retail.inventory.events", ce)
	require.NoError(t, err)
	return event
}

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig("outbox-test"))
}

func TestProcessEvents_PublishesAndMarks(t *testing.T) {
	first := testEvent(t, "sku-1")
	second := testEvent(t, "sku-2")
	repo := newFakeRepo(first, second)
	sink := &fakeSink{}

	p := NewPublisher(repo, sink, testLogger(), nil, nil)
	p.processEvents(context.Background())

	assert.ElementsMatch(t, []string{first.ID, second.ID}, repo.published)
	assert.Len(t, sink.published, 2)
	assert.Equal(t, map[string]int{"published": 2, "failed": 0}, p.Stats())

	// A second pass finds nothing left to publish
	p.processEvents(context.Background())
	assert.Len(t, sink.published, 2)
}

func TestProcessEvents_RetriesFailuresAndContinues(t *testing.T) {
	failing := testEvent(t, "sku-1")
	healthy := testEvent(t, "sku-2")
	repo := newFakeRepo(failing, healthy)

	// Fail on the failing event's CloudEvent ID
	ce, err := failing.ToCloudEvent()
	require.NoError(t, err)
	sink := &fakeSink{failFor: map[string]error{ce.ID: assert.AnError}}

	p := NewPublisher(repo, sink, testLogger(), nil, nil)
	p.processEvents(context.Background())

	assert.Equal(t, []string{healthy.ID}, repo.published)
	assert.Equal(t, []string{failing.ID}, repo.retried)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, p.Stats())
}

func TestPublisher_StartStop(t *testing.T) {
	repo := newFakeRepo()
	p := NewPublisher(repo, &fakeSink{}, testLogger(), nil, &PublisherConfig{
		PollInterval: time.Hour,
		BatchSize:    10,
	})

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()))

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}
