package learner

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/selector"
)

func newTestLearner(t *testing.T) (*Learner, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, nil, logger), store
}

func record(t *testing.T, l *Learner, token string, chain chains.Key, recipient string) {
	t.Helper()
	require.NoError(t, l.RecordPayment(context.Background(), token, chain, recipient))
}

func TestRecordPayment_TwoConsecutivePromoteDefault(t *testing.T) {
	l, _ := newTestLearner(t)

	record(t, l, "eth", chains.Base, "")
	prefs, err := l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prefs.DefaultTokenID, "single payment must not update anything")

	record(t, l, "eth", chains.Base, "")
	prefs, err = l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eth", prefs.DefaultTokenID)
	assert.Equal(t, chains.Base, prefs.FavoriteChain("eth"))
}

func TestRecordPayment_AlternatingChangesNothing(t *testing.T) {
	l, store := newTestLearner(t)
	require.NoError(t, store.SetDefaultToken(context.Background(), "usdc", chains.Solana))

	record(t, l, "usdc", chains.Solana, "")
	record(t, l, "eth", chains.Base, "")
	record(t, l, "usdc", chains.Solana, "")

	prefs, err := l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usdc", prefs.DefaultTokenID)
	assert.Equal(t, chains.Solana, prefs.FavoriteChain("usdc"))
}

func TestRecordPayment_FavoriteChainMigration(t *testing.T) {
	// Two consecutive sends of the default token on a different chain
	// migrate the favorite chain without touching the default token.
	l, store := newTestLearner(t)
	require.NoError(t, store.SetDefaultToken(context.Background(), "usdc", chains.Solana))

	record(t, l, "usdc", chains.Base, "")
	record(t, l, "usdc", chains.Base, "")

	prefs, err := l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usdc", prefs.DefaultTokenID)
	assert.Equal(t, chains.Base, prefs.FavoriteChain("usdc"))
}

func TestRecordPayment_SameChainIsNoOp(t *testing.T) {
	l, store := newTestLearner(t)
	require.NoError(t, store.SetDefaultToken(context.Background(), "usdc", chains.Solana))

	record(t, l, "usdc", chains.Solana, "")
	record(t, l, "usdc", chains.Solana, "")

	prefs, err := l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usdc", prefs.DefaultTokenID)
	assert.Equal(t, chains.Solana, prefs.FavoriteChain("usdc"))
}

func TestRecordPayment_NormalizesToken(t *testing.T) {
	l, _ := newTestLearner(t)

	record(t, l, " USDC ", chains.Solana, "")
	record(t, l, "usdc", chains.Solana, "")

	prefs, err := l.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usdc", prefs.DefaultTokenID)
}

func TestRecordPayment_Validation(t *testing.T) {
	l, _ := newTestLearner(t)

	assert.Error(t, l.RecordPayment(context.Background(), "", chains.Solana, ""))
	assert.Error(t, l.RecordPayment(context.Background(), "usdc", "tron", ""))
}

func TestRecordPayment_LogCapped(t *testing.T) {
	l, store := newTestLearner(t)

	for i := 0; i < 15; i++ {
		chain := chains.Solana
		if i%2 == 0 {
			chain = chains.Base
		}
		record(t, l, "usdc", chain, "")
	}

	log, err := store.PaymentLog(context.Background())
	require.NoError(t, err)
	assert.Len(t, log, maxRecords)
}

func TestLastUsedWithRecipient(t *testing.T) {
	l, _ := newTestLearner(t)

	record(t, l, "usdc", chains.Solana, "alice")
	record(t, l, "eth", chains.Base, "bob")
	record(t, l, "usdt", chains.Polygon, "alice")

	got, err := l.LastUsedWithRecipient(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, &selector.TokenChain{TokenID: "usdt", Chain: chains.Polygon}, got)

	got, err = l.LastUsedWithRecipient(context.Background(), "carol")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = l.LastUsedWithRecipient(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecentTokenIDs(t *testing.T) {
	l, _ := newTestLearner(t)

	record(t, l, "usdc", chains.Solana, "")
	record(t, l, "eth", chains.Base, "")
	record(t, l, "usdc", chains.Base, "")

	recent, err := l.RecentTokenIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"usdc", "eth"}, recent)
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.SetFavoriteChain(context.Background(), "usdc", chains.Solana))

	prefs, err := store.Preferences(context.Background())
	require.NoError(t, err)

	// Mutating a returned snapshot must not leak into the store.
	prefs.FavoriteChainByToken["usdc"] = chains.Polygon
	fresh, err := store.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chains.Solana, fresh.FavoriteChain("usdc"))
}
