package apikey

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists API keys. Lookup by hash backs request authentication.
type Store interface {
	CreateKey(ctx context.Context, key Key) error
	GetKey(ctx context.Context, id string) (Key, error)
	GetKeyByHash(ctx context.Context, hash string) (Key, error)
	ListKeys(ctx context.Context) ([]Key, error)
	TouchKey(ctx context.Context, id string, usedAt time.Time) error
	RevokeKey(ctx context.Context, id string, revokedAt time.Time) error
}

// Service manages the key lifecycle and verifies presented tokens.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for non-fatal store failures.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new key. The returned Key carries the plaintext secret;
// it is the only time the caller can see it.
func (s *Service) Create(ctx context.Context, name string) (Key, error) {
	if name == "" {
		return Key{}, ErrNameRequired
	}

	secret, prefix, hash, err := Generate()
	if err != nil {
		return Key{}, errors.Join(ErrStoreInternal, err)
	}

	key := Key{
		ID:        uuid.New().String(),
		Name:      name,
		Prefix:    prefix,
		Hash:      hash,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateKey(ctx, key); err != nil {
		return Key{}, err
	}

	key.Secret = secret
	return key, nil
}

// Verify authenticates a presented token. On success it stamps the key's
// last-used time; a failed stamp is logged but does not fail the request.
func (s *Service) Verify(ctx context.Context, secret string) (Key, error) {
	if !ValidFormat(secret) {
		return Key{}, ErrInvalidKey
	}

	hash := HashSecret(secret)
	key, err := s.store.GetKeyByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Key{}, ErrInvalidKey
		}
		return Key{}, err
	}
	if !hashesEqual(key.Hash, hash) {
		return Key{}, ErrInvalidKey
	}
	if key.Revoked() {
		return Key{}, ErrKeyRevoked
	}

	usedAt := s.now().UTC()
	if err := s.store.TouchKey(ctx, key.ID, usedAt); err != nil {
		s.log.WarnContext(ctx, "failed to stamp api key usage", "key_id", key.ID, "error", err)
	} else {
		key.LastUsedAt = &usedAt
	}

	return key, nil
}

// List returns all keys, newest first, without secrets or hashes.
func (s *Service) List(ctx context.Context) ([]Key, error) {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i].Hash = ""
	}
	return keys, nil
}

// Revoke withdraws a key. Revoking an already revoked key is a no-op.
func (s *Service) Revoke(ctx context.Context, id string) error {
	key, err := s.store.GetKey(ctx, id)
	if err != nil {
		return err
	}
	if key.Revoked() {
		return nil
	}
	return s.store.RevokeKey(ctx, id, s.now().UTC())
}

// Rotate revokes the old key and issues a replacement under the same name.
func (s *Service) Rotate(ctx context.Context, id string) (Key, error) {
	key, err := s.store.GetKey(ctx, id)
	if err != nil {
		return Key{}, err
	}
	if err := s.Revoke(ctx, id); err != nil {
		return Key{}, err
	}
	return s.Create(ctx, key.Name)
}
