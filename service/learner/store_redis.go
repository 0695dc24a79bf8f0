package learner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tucanapay/tucana/service/chains"
)

// RedisStore persists preferences and the payment log as JSON blobs in
// Redis, one pair of keys per user. The learner's single-writer mutex makes
// the read-modify-write on these keys safe; the store itself does no
// locking.
type RedisStore struct {
	client *redis.Client
	userID string
}

// NewRedisStore creates a Store for the given user backed by client.
func NewRedisStore(client *redis.Client, userID string) *RedisStore {
	return &RedisStore{client: client, userID: userID}
}

func (s *RedisStore) prefsKey() string {
	return fmt.Sprintf("tucana:prefs:%s", s.userID)
}

func (s *RedisStore) paymentsKey() string {
	return fmt.Sprintf("tucana:payments:%s", s.userID)
}

func (s *RedisStore) Preferences(ctx context.Context) (Preferences, error) {
	prefs := Preferences{FavoriteChainByToken: make(map[string]chains.Key)}

	raw, err := s.client.Get(ctx, s.prefsKey()).Result()
	if errors.Is(err, redis.Nil) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("get preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return prefs, fmt.Errorf("decode preferences: %w", err)
	}
	if prefs.FavoriteChainByToken == nil {
		prefs.FavoriteChainByToken = make(map[string]chains.Key)
	}
	return prefs, nil
}

func (s *RedisStore) SetDefaultToken(ctx context.Context, tokenID string, chain chains.Key) error {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return err
	}
	prefs.DefaultTokenID = normalize(tokenID)
	prefs.FavoriteChainByToken[normalize(tokenID)] = chain
	return s.savePreferences(ctx, prefs)
}

func (s *RedisStore) SetFavoriteChain(ctx context.Context, tokenID string, chain chains.Key) error {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return err
	}
	prefs.FavoriteChainByToken[normalize(tokenID)] = chain
	return s.savePreferences(ctx, prefs)
}

func (s *RedisStore) savePreferences(ctx context.Context, prefs Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.client.Set(ctx, s.prefsKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("set preferences: %w", err)
	}
	return nil
}

func (s *RedisStore) PaymentLog(ctx context.Context) ([]PaymentRecord, error) {
	raw, err := s.client.Get(ctx, s.paymentsKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment log: %w", err)
	}
	var log []PaymentRecord
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, fmt.Errorf("decode payment log: %w", err)
	}
	return log, nil
}

func (s *RedisStore) SavePaymentLog(ctx context.Context, log []PaymentRecord) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode payment log: %w", err)
	}
	if err := s.client.Set(ctx, s.paymentsKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("set payment log: %w", err)
	}
	return nil
}
