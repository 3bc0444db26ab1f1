package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"golang.org/x/oauth2"
)

const authPrefix = "/auth"

// Login exchanges credentials for a token pair (POST /auth/login).
// The returned token's Expiry is taken from the access token's exp claim
// when the access token is a JWT.
func (c *Client) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	var pair tokenPair
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     authPrefix + "/login",
		jsonBody: credentials{Email: email, Password: password},
		timeout:  c.authTimeout,
	}, &pair)
	if err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "[backend] login response without access_token")
	}
	return NewToken(pair.AccessToken, pair.RefreshToken), nil
}

// Register creates an account (POST /auth/register).
func (c *Client) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	var result RegisterResult
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     authPrefix + "/register",
		jsonBody: credentials{Email: email, Password: password},
		timeout:  c.authTimeout,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyEmail confirms an address (GET /auth/verify-email?token=...).
func (c *Client) VerifyEmail(ctx context.Context, token string) (*VerifyResult, error) {
	var result VerifyResult
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    authPrefix + "/verify-email",
		query:   url.Values{"token": {token}},
		timeout: c.authTimeout,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentUser fetches the identity behind accessToken (GET /auth/users/me).
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.do(ctx, request{
		method:      http.MethodGet,
		path:        authPrefix + "/users/me",
		accessToken: accessToken,
		timeout:     c.authTimeout,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedResponse, "[backend] users/me response without email")
	}
	return &user, nil
}

// ForgotPassword asks the backend to email a reset link (POST /auth/forgot-password).
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     authPrefix + "/forgot-password",
		jsonBody: map[string]string{"email": email},
		timeout:  c.authTimeout,
	}, nil)
}

// ResetPassword sets a new password using a reset token (POST /auth/reset-password).
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     authPrefix + "/reset-password",
		jsonBody: map[string]string{"token": token, "new_password": newPassword},
		timeout:  c.authTimeout,
	}, nil)
}

// NewToken builds the session token from a raw token pair.
func NewToken(accessToken, refreshToken string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       AccessTokenExpiry(accessToken),
	}
}

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying it. Opaque tokens, or tokens without exp, yield the zero time.
func AccessTokenExpiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
