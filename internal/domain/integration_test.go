package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscription(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sourceID := uuid.New()
	targetID := uuid.New()

	t.Run("creates a valid subscription", func(t *testing.T) {
		t.Parallel()

		integration, err := NewSubscription(userID, sourceID, targetID)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, integration.ID)
		assert.Equal(t, IntegrationKindSubscription, integration.Kind)
		assert.Equal(t, sourceID, integration.SourceListID)
		assert.Equal(t, targetID, integration.TargetListID)
	})

	t.Run("rejects a self subscription", func(t *testing.T) {
		t.Parallel()

		_, err := NewSubscription(userID, sourceID, sourceID)
		assert.ErrorIs(t, err, ErrIntegrationSelfBinding)
	})

	t.Run("rejects empty IDs", func(t *testing.T) {
		t.Parallel()

		_, err := NewSubscription(uuid.Nil, sourceID, targetID)
		assert.ErrorIs(t, err, ErrIntegrationUserIDEmpty)

		_, err = NewSubscription(userID, uuid.Nil, targetID)
		assert.ErrorIs(t, err, ErrIntegrationListIDEmpty)
	})
}

func TestIntegration_Validate_UnknownKind(t *testing.T) {
	t.Parallel()

	integration, err := NewSubscription(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	integration.Kind = "something-else"
	assert.ErrorIs(t, integration.Validate(), ErrIntegrationKindInvalid)
}
