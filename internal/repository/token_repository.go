package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"trend-trader/internal/domain"
)

// DeviceToken is a registered push target.
type DeviceToken struct {
	Token        string    `json:"token"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// TokenRepository keeps device tokens in memory. Used by the file and redis
// backends, which have no table for them.
type TokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]DeviceToken
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]DeviceToken)}
}

// RegisterToken adds a token or refreshes its platform and timestamp.
func (r *TokenRepository) RegisterToken(_ context.Context, token, platform string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = DeviceToken{Token: token, Platform: platform, RegisteredAt: at}
	return nil
}

func (r *TokenRepository) UnregisterToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

// GetAllTokens returns the tokens in lexical order.
func (r *TokenRepository) GetAllTokens(_ context.Context) ([]string, error) {
	r.mu.RLock()
	tokens := make([]string, 0, len(r.tokens))
	for token := range r.tokens {
		tokens = append(tokens, token)
	}
	r.mu.RUnlock()

	sort.Strings(tokens)
	return tokens, nil
}

func (r *TokenRepository) GetTokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

var _ domain.DeviceTokenRepository = (*TokenRepository)(nil)
