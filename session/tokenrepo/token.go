// Package tokenrepo stores a workspace's token pair: in memory, in Redis or
// in a file, optionally sealed at rest.
package tokenrepo

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// record is the stored form of a token.
type record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func marshalToken(tok *oauth2.Token) ([]byte, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("token has no access token")
	}
	data, err := json.Marshal(record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	return data, errors.Wrap(err, "marshal token")
}

func unmarshalToken(data []byte) (*oauth2.Token, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "unmarshal token")
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Expiry:       r.Expiry,
	}, nil
}

func expired(tok *oauth2.Token, now time.Time) bool {
	return !tok.Expiry.IsZero() && !now.Before(tok.Expiry)
}

func validKey(key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	return nil
}
