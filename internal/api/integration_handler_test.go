package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/service"
	"github.com/listas/listas-api/internal/store"
)

// fakeIntegrationService implements service.IntegrationService with canned
// behavior.
type fakeIntegrationService struct {
	subscribeFn   func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error)
	unsubscribeFn func(ctx context.Context, userID, integrationID uuid.UUID) error
}

func (s *fakeIntegrationService) Subscribe(
	ctx context.Context,
	userID, sourceListID, targetListID uuid.UUID,
) (*domain.Integration, error) {
	return s.subscribeFn(ctx, userID, sourceListID, targetListID)
}

func (s *fakeIntegrationService) Unsubscribe(ctx context.Context, userID, integrationID uuid.UUID) error {
	return s.unsubscribeFn(ctx, userID, integrationID)
}

func newIntegrationRouter(svc service.IntegrationService) chi.Router {
	h := NewIntegrationHandler(svc, handlerTestLogger())

	r := chi.NewRouter()
	r.Post("/integrations", h.CreateSubscription)
	r.Delete("/integrations/{id}", h.DeleteSubscription)
	return r
}

func TestIntegrationHandler_CreateSubscription(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		userID, sourceID, targetID := uuid.New(), uuid.New(), uuid.New()
		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, gotUser, gotSource, gotTarget uuid.UUID) (*domain.Integration, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, sourceID, gotSource)
				assert.Equal(t, targetID, gotTarget)
				return domain.NewSubscription(gotUser, gotSource, gotTarget)
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", userID,
			CreateSubscriptionRequest{
				SourceListID: sourceID.String(),
				TargetListID: targetID.String(),
			})

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp IntegrationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, string(domain.IntegrationKindSubscription), resp.Kind)
		assert.Equal(t, sourceID.String(), resp.SourceListID)
		assert.Equal(t, targetID.String(), resp.TargetListID)
	})

	t.Run("identical lists rejected by validation", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error) {
				t.Fatal("service should not be called")
				return nil, nil
			},
		}

		listID := uuid.New().String()
		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", uuid.New(),
			CreateSubscriptionRequest{SourceListID: listID, TargetListID: listID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown source list", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error) {
				return nil, store.ErrListNotFound
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", uuid.New(),
			CreateSubscriptionRequest{
				SourceListID: uuid.New().String(),
				TargetListID: uuid.New().String(),
			})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("target not owned", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error) {
				return nil, service.ErrNotOwned
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", uuid.New(),
			CreateSubscriptionRequest{
				SourceListID: uuid.New().String(),
				TargetListID: uuid.New().String(),
			})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate subscription conflicts", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error) {
				return nil, store.ErrSubscriptionExists
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", uuid.New(),
			CreateSubscriptionRequest{
				SourceListID: uuid.New().String(),
				TargetListID: uuid.New().String(),
			})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing user identity", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			subscribeFn: func(ctx context.Context, userID, sourceListID, targetListID uuid.UUID) (*domain.Integration, error) {
				return nil, nil
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodPost, "/integrations", uuid.Nil,
			CreateSubscriptionRequest{
				SourceListID: uuid.New().String(),
				TargetListID: uuid.New().String(),
			})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIntegrationHandler_DeleteSubscription(t *testing.T) {
	t.Parallel()

	t.Run("deleted", func(t *testing.T) {
		t.Parallel()

		userID, integrationID := uuid.New(), uuid.New()
		svc := &fakeIntegrationService{
			unsubscribeFn: func(ctx context.Context, gotUser, gotID uuid.UUID) error {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, integrationID, gotID)
				return nil
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodDelete,
			"/integrations/"+integrationID.String(), userID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown integration", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			unsubscribeFn: func(ctx context.Context, userID, integrationID uuid.UUID) error {
				return store.ErrIntegrationNotFound
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodDelete,
			"/integrations/"+uuid.New().String(), uuid.New(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed integration ID", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIntegrationService{
			unsubscribeFn: func(ctx context.Context, userID, integrationID uuid.UUID) error {
				t.Fatal("service should not be called")
				return nil
			},
		}

		rec := doRequest(t, newIntegrationRouter(svc), http.MethodDelete,
			"/integrations/not-a-uuid", uuid.New(), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
