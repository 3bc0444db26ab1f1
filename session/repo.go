package session

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenRepo is durable storage for a workspace's token pair. It is what makes
// a login survive reloads and be shared by every tab of the same browser.
// Load returns errors.ErrNotFound when nothing is stored under key.
type TokenRepo interface {
	Save(ctx context.Context, key string, tok *oauth2.Token) error
	Load(ctx context.Context, key string) (*oauth2.Token, error)
	Delete(ctx context.Context, key string) error
}
