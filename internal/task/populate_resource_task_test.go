package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/platform/pagemeta"
	"github.com/listas/listas-api/internal/store"
)

// fakeEnrichmentStore implements ResourceEnrichmentStore in memory.
type fakeEnrichmentStore struct {
	mu        sync.Mutex
	resources map[uuid.UUID]*domain.Resource
	updates   map[uuid.UUID][]store.ResourceMetadata

	UpdateFn func(ctx context.Context, id uuid.UUID, meta store.ResourceMetadata) error
}

func newFakeEnrichmentStore() *fakeEnrichmentStore {
	return &fakeEnrichmentStore{
		resources: make(map[uuid.UUID]*domain.Resource),
		updates:   make(map[uuid.UUID][]store.ResourceMetadata),
	}
}

func (s *fakeEnrichmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, store.ErrResourceNotFound
	}
	return r, nil
}

func (s *fakeEnrichmentStore) UpdateMetadata(
	ctx context.Context,
	id uuid.UUID,
	meta store.ResourceMetadata,
) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, id, meta)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return store.ErrResourceNotFound
	}
	s.updates[id] = append(s.updates[id], meta)
	return nil
}

// fakeFetcher implements pagemeta.Fetcher with a canned response.
type fakeFetcher struct {
	meta *pagemeta.Metadata
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*pagemeta.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

func taskTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedResource(t *testing.T, s *fakeEnrichmentStore) *domain.Resource {
	t.Helper()

	resource, err := domain.NewResource(uuid.New(), uuid.New(), "https://example.com/post", 0)
	require.NoError(t, err)
	s.resources[resource.ID] = resource
	return resource
}

func TestPopulateResourceTask_PersistsMetadata(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)

	fetcher := &fakeFetcher{meta: &pagemeta.Metadata{
		Title:        "A Post",
		Author:       "Someone",
		Content:      "<p>body</p>",
		Excerpt:      "body",
		LeadImageURL: "https://example.com/img.png",
		WordCount:    120,
		Domain:       "example.com",
	}}

	task, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)
	require.NoError(t, task.Execute(context.Background()))

	updates := s.updates[resource.ID]
	require.Len(t, updates, 1)

	update := updates[0]
	require.NotNil(t, update.Title)
	assert.Equal(t, "A Post", *update.Title)
	require.NotNil(t, update.Description)
	assert.Equal(t, "body", *update.Description)
	require.NotNil(t, update.Thumbnail)
	assert.Equal(t, "https://example.com/img.png", *update.Thumbnail)
	require.NotNil(t, update.HTML)
	assert.Equal(t, "<p>body</p>", *update.HTML)
	require.NotNil(t, update.Author)
	assert.Equal(t, "Someone", *update.Author)
	require.NotNil(t, update.Length)
	assert.Equal(t, 120, *update.Length)
	require.NotNil(t, update.Publisher)
	assert.Equal(t, "example.com", *update.Publisher)

	// The extractor returned no plain text, so that field stays untouched.
	assert.Nil(t, update.Text)
}

func TestPopulateResourceTask_RerunWritesSameFields(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)
	fetcher := &fakeFetcher{meta: &pagemeta.Metadata{Title: "Stable Title"}}

	task, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))
	require.NoError(t, task.Execute(context.Background()))

	updates := s.updates[resource.ID]
	require.Len(t, updates, 2)
	assert.Equal(t, updates[0], updates[1])
}

func TestPopulateResourceTask_MissingResourceIsSoftSuccess(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	fetcher := &fakeFetcher{meta: &pagemeta.Metadata{Title: "unused"}}

	task, err := NewPopulateResourceTask(uuid.New(), s, fetcher, taskTestLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
}

func TestPopulateResourceTask_NoMetadataIsSoftSuccess(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)
	fetcher := &fakeFetcher{err: pagemeta.ErrNoMetadata}

	task, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
	assert.Empty(t, s.updates[resource.ID])
}

func TestPopulateResourceTask_UpstreamFailureIsSoftSuccess(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)
	fetcher := &fakeFetcher{err: &pagemeta.ClientError{
		Operation:  "fetch",
		StatusCode: 502,
		Err:        errors.New("bad gateway"),
	}}

	task, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)

	assert.NoError(t, task.Execute(context.Background()))
	assert.Empty(t, s.updates[resource.ID])
}

func TestPopulateResourceTask_StorageFailurePropagates(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)
	fetcher := &fakeFetcher{meta: &pagemeta.Metadata{Title: "A Post"}}

	storageErr := errors.New("connection reset")
	s.UpdateFn = func(ctx context.Context, id uuid.UUID, meta store.ResourceMetadata) error {
		return storageErr
	}

	task, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)

	err = task.Execute(context.Background())
	assert.ErrorIs(t, err, storageErr)
}

func TestPopulateResourceTaskFactory_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newFakeEnrichmentStore()
	resource := seedResource(t, s)
	fetcher := &fakeFetcher{meta: &pagemeta.Metadata{Title: "From Factory"}}

	factory, err := NewPopulateResourceTaskFactory(s, fetcher, taskTestLogger())
	require.NoError(t, err)

	original, err := NewPopulateResourceTask(resource.ID, s, fetcher, taskTestLogger())
	require.NoError(t, err)

	rebuilt, err := factory.CreateFromPayload(original.Payload())
	require.NoError(t, err)
	assert.Equal(t, TaskTypePopulateResource, rebuilt.Type())

	require.NoError(t, rebuilt.Execute(context.Background()))
	require.Len(t, s.updates[resource.ID], 1)
}
