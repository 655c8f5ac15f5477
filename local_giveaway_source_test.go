package gamealert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert/model"
)

func TestCreateLocalGiveaway(t *testing.T) {
	repo := newMemLocalGiveaways()

	g, err := CreateLocalGiveaway(context.Background(), repo, CreateLocalGiveawayRequest{AppID: 620, Key: "AAAAA-BBBBB-CCCCC"})
	require.NoError(t, err)
	assert.NotZero(t, g.ID)
	assert.False(t, g.HasWinner())
	assert.False(t, g.Announced)
	assert.WithinDuration(t, time.Now().Add(model.LocalGiveawayDuration), g.EndTime, time.Minute)

	pending, err := repo.FindUnannounced(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateLocalGiveaway_Validation(t *testing.T) {
	repo := newMemLocalGiveaways()

	_, err := CreateLocalGiveaway(context.Background(), repo, CreateLocalGiveawayRequest{AppID: 0, Key: "AAAAA-BBBBB"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = CreateLocalGiveaway(context.Background(), repo, CreateLocalGiveawayRequest{AppID: 620, Key: "abc"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestLocalGiveawaySource_MarkAnnouncedRejectsBadID(t *testing.T) {
	source, err := NewLocalGiveawaySource(newMemLocalGiveaways(), &fakeCatalog{})
	require.NoError(t, err)
	err = source.MarkAnnounced(context.Background(), "not-a-number")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
