package relica

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// openTestDB returns an in-memory SQLite database with the embedded schema applied.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(gamealert.MigrationFiles)
	require.NoError(t, goose.SetDialect("sqlite3"))
	dir, err := gamealert.MigrationDir("sqlite3")
	require.NoError(t, err)
	require.NoError(t, goose.UpContext(context.Background(), db, dir))
	return db
}

func saveSub(t *testing.T, repo *SubscriptionRepository, sub model.Subscription) model.Subscription {
	t.Helper()
	saved, err := repo.Save(context.Background(), sub)
	require.NoError(t, err)
	return saved
}

func priceSub(serverID, channelID, name string, target int64) model.Subscription {
	return model.NewPriceSubscription(serverID, channelID, "u1", model.PriceTarget{
		GameKey:     "key-" + name,
		DisplayName: name,
		TargetPrice: target,
	}, nil)
}

func TestSubscriptionRepository_SaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(openTestDB(t), "sqlite3")

	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s1", "c1", "u1", model.Mentions{"<@&10>"}))
	saveSub(t, repo, priceSub("s1", "c1", "Hollow Knight", 1500))
	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s2", "c9", "u2", nil))

	subs, err := repo.ListByServer(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, model.KindGiveaway, subs[0].Kind)
	assert.Equal(t, model.Mentions{"<@&10>"}, subs[0].Mentions)
	require.NotNil(t, subs[1].Price)
	assert.Equal(t, "Hollow Knight", subs[1].Price.DisplayName)
	assert.Equal(t, int64(1500), subs[1].Price.TargetPrice)

	giveaways, err := repo.ListByKind(ctx, model.KindGiveaway)
	require.NoError(t, err)
	assert.Len(t, giveaways, 2)

	count, err := repo.CountByServer(ctx, "s1", model.StandingKinds()...)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubscriptionRepository_DeleteByChannelCoversEveryKind(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(openTestDB(t), "sqlite3")

	for _, kind := range model.StandingKinds() {
		saveSub(t, repo, model.NewSubscription(kind, "s1", "dead", "u1", nil))
	}
	saveSub(t, repo, priceSub("s1", "dead", "Celeste", 500))
	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s1", "alive", "u1", nil))

	removed, err := repo.DeleteByChannel(ctx, "dead")
	require.NoError(t, err)
	assert.Equal(t, len(model.AllKinds()), removed)

	left, err := repo.ListByServer(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "alive", left[0].ChannelID)

	removed, err = repo.DeleteByChannel(ctx, "dead")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSubscriptionRepository_DeleteMatchingPriceKey(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(openTestDB(t), "sqlite3")

	target := saveSub(t, repo, priceSub("s1", "c1", "Hollow Knight: Silksong", 1500))
	saveSub(t, repo, priceSub("s1", "c1", "Hollow Knight: Silksong", 2000))
	saveSub(t, repo, priceSub("s1", "c2", "Hollow Knight: Silksong", 1500))
	saveSub(t, repo, priceSub("s1", "c1", "hollow knight: silksong", 1500))
	saveSub(t, repo, priceSub("s2", "c1", "Hollow Knight: Silksong", 1500))

	key, ok := target.PriceKey()
	require.True(t, ok)

	removed, err := repo.DeleteMatching(ctx, "s1", model.KindPrice, gamealert.FilterFromPriceKey(key))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := repo.ListByKind(ctx, model.KindPrice)
	require.NoError(t, err)
	assert.Len(t, left, 4)
	for _, s := range left {
		assert.False(t, key.Matches(s) && s.ServerID == "s1", "matching subscription %d survived", s.ID)
	}
}

func TestSubscriptionRepository_DeleteMatchingScopes(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(openTestDB(t), "sqlite3")

	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s1", "c1", "u1", nil))
	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s1", "c2", "u1", nil))
	saveSub(t, repo, model.NewSubscription(model.KindGiveaway, "s2", "c3", "u1", nil))

	// Price-only criteria never match a standing kind.
	removed, err := repo.DeleteMatching(ctx, "s1", model.KindGiveaway, gamealert.DeleteFilter{NamePrefix: "Hollow"})
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = repo.DeleteMatching(ctx, "s1", model.KindGiveaway, gamealert.DeleteFilter{ChannelID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = repo.DeleteMatching(ctx, "s1", model.KindGiveaway, gamealert.DeleteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := repo.ListByKind(ctx, model.KindGiveaway)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "s2", left[0].ServerID)
}

func TestSubscriptionRepository_DeleteMissingIsNoData(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(openTestDB(t), "sqlite3")

	sub := saveSub(t, repo, model.NewSubscription(model.KindGamePass, "s1", "c1", "u1", nil))
	require.NoError(t, repo.Delete(ctx, model.KindGamePass, sub.ID))
	assert.True(t, gamealert.IsNoData(repo.Delete(ctx, model.KindGamePass, sub.ID)))
}

func TestCandidateRepository_MarkAnnouncedIsPerRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewGiveawayRepository(db, "sqlite3")

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := db.ExecContext(ctx, "INSERT INTO gamerpower (title) VALUES (?)", title)
		require.NoError(t, err)
	}

	pending, err := repo.FindUnannounced(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	require.NoError(t, repo.MarkAnnounced(ctx, pending[1].CandidateID()))
	// Marking twice is harmless.
	require.NoError(t, repo.MarkAnnounced(ctx, pending[1].CandidateID()))

	left, err := repo.FindUnannounced(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, pending[0].CandidateID(), left[0].CandidateID())
	assert.Equal(t, pending[2].CandidateID(), left[1].CandidateID())

	assert.True(t, gamealert.IsValidation(repo.MarkAnnounced(ctx, "not-a-number")))
}

func TestCandidateRepository_TextKeyedGamePass(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewGamePassRepository(db, "sqlite3")

	_, err := db.ExecContext(ctx, "INSERT INTO gamepass (id, title) VALUES (?, ?), (?, ?)",
		"9NBLGGH4R315", "Hades", "9P6RBZXKG4WQ", "Celeste")
	require.NoError(t, err)

	require.NoError(t, repo.MarkAnnounced(ctx, "9NBLGGH4R315"))

	left, err := repo.FindUnannounced(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "9P6RBZXKG4WQ", left[0].CandidateID())
}

func TestLocalGiveawayRepository_PendingDrawsOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewLocalGiveawayRepository(openTestDB(t), "sqlite3")
	now := time.Now().UTC().Truncate(time.Second)

	for appID, ended := range map[int64]time.Duration{
		10: -time.Hour,       // still open
		20: 2 * time.Hour,    // ended
		30: 48 * time.Hour,   // ended first
		40: 30 * time.Minute, // ended last
	} {
		g := model.NewLocalGiveaway(appID, "KEY")
		g.CreationTime = now.Add(-7 * 24 * time.Hour)
		g.EndTime = now.Add(-ended)
		_, err := repo.Save(ctx, g)
		require.NoError(t, err)
	}

	pending, err := repo.FindPendingDraws(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{30, 20, 40}, []int64{pending[0].AppID, pending[1].AppID, pending[2].AppID})
}

func TestLocalGiveawayRepository_SetWinnerOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewLocalGiveawayRepository(db, "sqlite3")
	now := time.Now().UTC().Truncate(time.Second)

	g := model.NewLocalGiveaway(620, "PORTAL-2")
	g.EndTime = now.Add(-time.Minute)
	_, err := repo.Save(ctx, g)
	require.NoError(t, err)

	pending, err := repo.FindPendingDraws(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	require.NoError(t, repo.SetWinner(ctx, id, "u1"))
	assert.True(t, gamealert.IsNoData(repo.SetWinner(ctx, id, "u2")))
	assert.True(t, gamealert.IsNoData(repo.SetWinner(ctx, id+100, "u3")))

	pending, err = repo.FindPendingDraws(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var winner string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT winner FROM local_giveaways WHERE id = ?", id).Scan(&winner))
	assert.Equal(t, "u1", winner)
}
