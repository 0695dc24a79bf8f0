// Package learner observes completed payments and adjusts the user's default
// token and per-token favorite chain. Updates happen only on confirmed
// patterns — two consecutive payments that agree — never on a single
// occurrence or alternating behavior, so noisy usage cannot flap the
// defaults back and forth.
package learner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/metrics"
	"github.com/tucanapay/tucana/service/selector"
)

// maxRecords caps the rolling payment log.
const maxRecords = 10

// PaymentRecord is one completed send. Recipient is empty when the caller
// did not share it (e.g. privacy-scrubbed history imports).
type PaymentRecord struct {
	TokenID     string     `json:"token_id"`
	Chain       chains.Key `json:"chain"`
	TimestampMs int64      `json:"timestamp_ms"`
	Recipient   string     `json:"recipient,omitempty"`
}

// Preferences is the learned preference state: the default token and the
// favorite chain for each token the user has settled into.
type Preferences struct {
	DefaultTokenID       string                `json:"default_token_id,omitempty"`
	FavoriteChainByToken map[string]chains.Key `json:"favorite_chain_by_token,omitempty"`
}

// FavoriteChain returns the stored favorite chain for token, or "".
func (p Preferences) FavoriteChain(token string) chains.Key {
	return p.FavoriteChainByToken[normalize(token)]
}

// Store is the persistence contract for preferences and the payment log.
// The learner is the only writer; readers may take the latest committed
// snapshot without coordination.
type Store interface {
	Preferences(ctx context.Context) (Preferences, error)
	SetDefaultToken(ctx context.Context, tokenID string, chain chains.Key) error
	SetFavoriteChain(ctx context.Context, tokenID string, chain chains.Key) error
	PaymentLog(ctx context.Context) ([]PaymentRecord, error)
	SavePaymentLog(ctx context.Context, log []PaymentRecord) error
}

// Learner owns the payment log and the preference update rules.
type Learner struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu serializes every RecordPayment so the read-modify-write on the
	// log and preferences is effectively atomic. Concurrent sends from
	// the same device would otherwise race and lose updates.
	mu sync.Mutex
}

// New creates a Learner backed by the given store. m may be nil to disable
// recording.
func New(store Store, m *metrics.Metrics, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{store: store, metrics: m, logger: logger}
}

// RecordPayment appends a completed send to the rolling log and re-runs the
// preference analysis. The log keeps only the most recent maxRecords entries.
func (l *Learner) RecordPayment(ctx context.Context, tokenID string, chain chains.Key, recipient string) error {
	tokenID = normalize(tokenID)
	if tokenID == "" {
		return fmt.Errorf("record payment: empty token id")
	}
	if !chain.IsValid() {
		return fmt.Errorf("record payment: unknown chain %q", chain)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	log, err := l.store.PaymentLog(ctx)
	if err != nil {
		return fmt.Errorf("load payment log: %w", err)
	}

	log = append(log, PaymentRecord{
		TokenID:     tokenID,
		Chain:       chain,
		TimestampMs: time.Now().UnixMilli(),
		Recipient:   recipient,
	})
	if len(log) > maxRecords {
		log = log[len(log)-maxRecords:]
	}

	if err := l.store.SavePaymentLog(ctx, log); err != nil {
		return fmt.Errorf("save payment log: %w", err)
	}

	return l.analyzeAndUpdate(ctx, log)
}

// analyzeAndUpdate applies the pattern rules over the tail of the log.
//
// Rule (a): the last two payments both used the current default token but on
// a chain different from its stored favorite, and agree on that chain —
// migrate only the favorite chain.
//
// Rule (b): the last two payments agree on both token and chain and the pair
// differs from the current default — promote it to the new default.
//
// Anything else (alternating, single occurrence, disagreement) changes
// nothing.
func (l *Learner) analyzeAndUpdate(ctx context.Context, log []PaymentRecord) error {
	if len(log) < 2 {
		return nil
	}
	prev, last := log[len(log)-2], log[len(log)-1]
	if prev.TokenID != last.TokenID || prev.Chain != last.Chain {
		return nil
	}

	prefs, err := l.store.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	if prefs.DefaultTokenID == last.TokenID {
		if prefs.FavoriteChain(last.TokenID) == last.Chain {
			return nil
		}
		if err := l.store.SetFavoriteChain(ctx, last.TokenID, last.Chain); err != nil {
			return fmt.Errorf("set favorite chain: %w", err)
		}
		l.metrics.RecordPreferenceUpdate("favorite_chain_migrated")
		l.logger.Info("favorite chain migrated",
			"token", last.TokenID,
			"chain", last.Chain,
		)
		return nil
	}

	if err := l.store.SetDefaultToken(ctx, last.TokenID, last.Chain); err != nil {
		return fmt.Errorf("set default token: %w", err)
	}
	l.metrics.RecordPreferenceUpdate("default_promoted")
	l.logger.Info("default token promoted",
		"token", last.TokenID,
		"chain", last.Chain,
	)
	return nil
}

// LastUsedWithRecipient returns the most recent token+chain pair used with
// the given recipient, or nil when the recipient never appears in the log.
func (l *Learner) LastUsedWithRecipient(ctx context.Context, recipient string) (*selector.TokenChain, error) {
	if recipient == "" {
		return nil, nil
	}
	log, err := l.store.PaymentLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payment log: %w", err)
	}
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Recipient == recipient {
			return &selector.TokenChain{TokenID: log[i].TokenID, Chain: log[i].Chain}, nil
		}
	}
	return nil, nil
}

// RecentTokenIDs returns the distinct tokens in the log, most recent first.
func (l *Learner) RecentTokenIDs(ctx context.Context) ([]string, error) {
	log, err := l.store.PaymentLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payment log: %w", err)
	}
	seen := make(map[string]bool, len(log))
	var out []string
	for i := len(log) - 1; i >= 0; i-- {
		if !seen[log[i].TokenID] {
			seen[log[i].TokenID] = true
			out = append(out, log[i].TokenID)
		}
	}
	return out, nil
}

// Preferences returns the latest committed preference snapshot.
func (l *Learner) Preferences(ctx context.Context) (Preferences, error) {
	return l.store.Preferences(ctx)
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
