package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRecord(t *testing.T) {
	repo := NewInMemoryRepository()
	service := NewService(repo)

	service.Record(context.Background(), "alice@company-a.com", "company-a-realm", "change_password", OutcomeSuccess, "")
	service.Record(context.Background(), "alice@company-a.com", "company-a-realm", "unlock_account", OutcomeFailure, "PROVIDER_REQUEST_FAILED")
	service.Record(context.Background(), "bob@company-b.com", "company-b-realm", "change_password", OutcomeSuccess, "")

	events, err := service.FindByEmail(context.Background(), "alice@company-a.com")
	require.NoError(t, err)
	require.Len(t, events, 2)

	// newest first
	assert.Equal(t, "unlock_account", events[0].Operation)
	assert.Equal(t, OutcomeFailure, events[0].Outcome)
	assert.Equal(t, "change_password", events[1].Operation)

	for _, event := range events {
		assert.NotZero(t, event.ID)
		assert.False(t, event.At.IsZero())
		assert.Equal(t, "company-a-realm", event.Realm)
	}

	events, err = service.FindByEmail(context.Background(), "ghost@nowhere.io")
	require.NoError(t, err)
	assert.Empty(t, events)
}
