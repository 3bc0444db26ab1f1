package tokenrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/session"
	"golang.org/x/oauth2"
)

var _ session.TokenRepo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps tokens for the life of the process.
type InMemoryRepo struct {
	mu     sync.RWMutex
	tokens map[string]oauth2.Token
	now    func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens: make(map[string]oauth2.Token),
		now:    time.Now,
	}
}

// Save creates or replaces the token stored under key
func (r *InMemoryRepo) Save(_ context.Context, key string, tok *oauth2.Token) error {
	if err := validKey(key); err != nil {
		return err
	}
	if tok == nil || tok.AccessToken == "" {
		return apperrors.Validation("token has no access token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[key] = *tok
	return nil
}

func (r *InMemoryRepo) Load(_ context.Context, key string) (*oauth2.Token, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	r.mu.RLock()
	tok, ok := r.tokens[key]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if expired(&tok, r.now()) {
		_ = r.Delete(context.Background(), key)
		return nil, apperrors.ErrNotFound
	}
	return &tok, nil
}

// Delete removes the token; deleting a missing key is not an error
func (r *InMemoryRepo) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, key)
	return nil
}
