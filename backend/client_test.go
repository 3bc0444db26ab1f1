package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "rider@example.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestClient_Login(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "rider@example.com", body["email"])
		require.Equal(t, "pw", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
		})
	})

	tok, err := c.Login(context.Background(), "rider@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, access, tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
	require.True(t, tok.Expiry.Equal(exp))
}

func TestClient_LoginMissingAccessToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"refresh_token":"x"}`))
	})

	_, err := c.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
}

func TestClient_CurrentUserSendsBearer(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/users/me", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"email":"rider@example.com","role":"user","email_verified":true}`))
	})

	user, err := c.CurrentUser(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, "rider@example.com", user.Email)
	require.True(t, user.IsVerified())
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Run("detail string", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Email already registered"}`))
		})
		_, err := c.Register(context.Background(), "a@x.com", "pw")

		var rejected *apperrors.RejectedError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, http.StatusBadRequest, rejected.Status)
		require.Equal(t, "Email already registered", rejected.Detail)
		require.Equal(t, "Registration failed: Email already registered", apperrors.StatusMessage("Registration", err))
	})

	t.Run("validation list detail is ignored", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"invalid"}]}`))
		})
		err := c.ForgotPassword(context.Background(), "nope")
		require.Equal(t, "Reset request failed (status 422)", apperrors.StatusMessage("Reset request", err))
	})

	t.Run("401 is unauthorized", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.ListBikes(context.Background(), "stale")
		require.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("malformed success body", func(t *testing.T) {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>oops</html>`))
		})
		_, err := c.ListSheds(context.Background(), "tok")
		require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		c := backend.New(srv.URL, backend.WithTimeouts(50*time.Millisecond, 50*time.Millisecond, 0))
		_, err := c.ListBikes(context.Background(), "tok")
		require.ErrorIs(t, err, apperrors.ErrTimeout)
		require.True(t, apperrors.IsTimeout(err))
		require.Equal(t, "Backend timeout – please try again.", apperrors.StatusMessage("Load", err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := backend.New(url).ListBikes(context.Background(), "tok")
		require.ErrorIs(t, err, apperrors.ErrUnreachable)
		require.Contains(t, apperrors.StatusMessage("Load", err), "Error contacting backend: ")
	})
}

func TestClient_VerifyEmailQuery(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/auth/verify-email", r.URL.Path)
		require.Equal(t, "abc 123", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"email":"rider@example.com"}`))
	})

	res, err := c.VerifyEmail(context.Background(), "abc 123")
	require.NoError(t, err)
	require.Equal(t, "rider@example.com", res.Email)
}

func TestClient_ResetPasswordBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/reset-password", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"token": "t1", "new_password": "s3cret"}, body)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.ResetPassword(context.Background(), "t1", "s3cret"))
}

func TestClient_Bikes(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /bikes":
			_, _ = w.Write([]byte(`[{"id":"b1","name":"Tallboy","brand":"Santa Cruz","model_year":2021,"hero_media_id":"m1"},{"id":"b2","name":"Hei Hei","brand":"Kona"}]`))
		case "POST /bikes":
			var in backend.BikeInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "Spectral", in.Name)
			require.Equal(t, 2019, *in.ModelYear)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"b3","name":"Spectral","brand":"Canyon","model_year":2019}`))
		case "DELETE /bikes/b3":
			w.WriteHeader(http.StatusNoContent)
		case "GET /bikes/b1/kinematics":
			_, _ = w.Write([]byte(`{"steps":[{"step_index":0,"shock_stroke":0,"rear_travel":0,"leverage_ratio":2.9}],"rear_axle_point_id":"p7"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	bikes, err := c.ListBikes(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, bikes, 2)
	require.Equal(t, "2021", bikes[0].YearString())
	require.Equal(t, "", bikes[1].YearString())

	year := 2019
	created, err := c.CreateBike(ctx, "tok", backend.BikeInput{Name: "Spectral", Brand: "Canyon", ModelYear: &year})
	require.NoError(t, err)
	require.Equal(t, "b3", created.ID)

	require.NoError(t, c.DeleteBike(ctx, "tok", "b3"))

	kin, err := c.Kinematics(ctx, "tok", "b1")
	require.NoError(t, err)
	require.Len(t, kin.Steps, 1)
	require.Equal(t, 2.9, kin.Steps[0].LeverageRatio)
	require.Equal(t, "p7", *kin.RearAxlePointID)
}

func TestClient_UploadHero(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bikes/b1/media/hero", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		require.Equal(t, "hero.jpg", header.Filename)
		require.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		require.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
		_, _ = w.Write([]byte(`{"warning":"EXIF stripped"}`))
	})

	res, err := c.UploadHero(context.Background(), "tok", "b1", backend.Media{
		Filename:    "hero.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8, 0xff},
	})
	require.NoError(t, err)
	require.Equal(t, "EXIF stripped", res.Warning)
}

func TestClient_ShedMembership(t *testing.T) {
	var calls []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.AddBikeToShed(ctx, "tok", "s1", "b1"))
	require.NoError(t, c.RemoveBikeFromShed(ctx, "tok", "s1", "b1"))
	bikes, err := c.ListShedBikes(ctx, "tok", "s1")
	require.NoError(t, err)
	require.Empty(t, bikes)

	require.Equal(t, []string{
		"POST /sheds/s1/bikes/b1",
		"DELETE /sheds/s1/bikes/b1",
		"GET /sheds/s1/bikes",
	}, calls)
}

func TestAccessTokenExpiry(t *testing.T) {
	require.True(t, backend.AccessTokenExpiry("opaque-token").IsZero())

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	require.True(t, backend.AccessTokenExpiry(signedToken(t, exp)).Equal(exp))
}
