package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/trigpoint-web/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := config.FromMap(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "Trig Point", c.GetAppName())
	require.True(t, c.IsDev())
	require.Equal(t, "http://127.0.0.1:9000", c.GetBackendOrigin())
	require.Equal(t, c.GetBackendOrigin(), c.GetMediaBaseURL())
	require.Equal(t, 20*time.Second, c.GetRequestTimeout())
	require.Equal(t, 10*time.Second, c.GetAuthTimeout())
	require.Equal(t, 60*time.Second, c.GetUploadTimeout())
	require.Empty(t, c.GetRedisAddr())
	require.Equal(t, 720*time.Hour, c.GetTokenMaxAge())
	require.Equal(t, 2*time.Hour, c.GetWorkspaceIdleTimeout())
	require.Len(t, c.GetCSRFKey(), 32)
	require.False(t, c.GetSecureCookies())
}

func TestOverrides(t *testing.T) {
	key := strings.Repeat("ab", 32)
	c, err := config.FromMap(map[string]string{
		"PORT":            ":8080",
		"ENV":             "prod",
		"BACKEND_ORIGIN":  "https://api.trigpoint.test/",
		"MEDIA_BASE_URL":  "https://cdn.trigpoint.test/",
		"BACKEND_TIMEOUT": "5s",
		"AUTH_TIMEOUT":    "10ms",
		"REDIS_ADDR":      "localhost:6379",
		"REDIS_DB":        "2",
		"CSRF_KEY":        key,
		"SECURE_COOKIES":  "true",
	})
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.False(t, c.IsDev())
	require.Equal(t, "https://api.trigpoint.test", c.GetBackendOrigin())
	require.Equal(t, "https://cdn.trigpoint.test", c.GetMediaBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, time.Second, c.GetAuthTimeout(), "timeouts are clamped")
	require.Equal(t, "localhost:6379", c.GetRedisAddr())
	require.Equal(t, 2, c.GetRedisDB())
	require.Equal(t, byte(0xab), c.GetCSRFKey()[0])
	require.True(t, c.GetSecureCookies())
}

func TestBadCSRFKeyFallsBackToRandom(t *testing.T) {
	c, err := config.FromMap(map[string]string{"CSRF_KEY": "short"})
	require.NoError(t, err)
	require.Len(t, c.GetCSRFKey(), 32)
}

func TestInvalidDuration(t *testing.T) {
	_, err := config.FromMap(map[string]string{"BACKEND_TIMEOUT": "soon"})
	require.Error(t, err)
}
