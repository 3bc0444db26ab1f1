package config

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type SecurityConfig interface {
	GetCSRFKey() []byte
	GetSecureCookies() bool
	GetWorkspaceIdleTimeout() time.Duration
}

type Security struct {
	CSRFKey              string        `env:"CSRF_KEY"`
	SecureCookies        bool          `env:"SECURE_COOKIES" envDefault:"false"`
	WorkspaceIdleTimeout time.Duration `env:"WORKSPACE_IDLE_TIMEOUT" envDefault:"2h"`

	csrfKey []byte
}

var _ SecurityConfig = Security{}

// Sanitize decodes CSRF_KEY. A missing or malformed key is replaced by a
// random one, which invalidates forms across restarts.
func (s *Security) Sanitize() {
	key, err := hex.DecodeString(strings.TrimSpace(s.CSRFKey))
	if err != nil || len(key) != 32 {
		if s.CSRFKey != "" {
			log.Warn().Msg("CSRF_KEY must be 64 hex characters, using a random key")
		}
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	s.csrfKey = key
	if s.WorkspaceIdleTimeout < time.Minute {
		s.WorkspaceIdleTimeout = time.Minute
	}
}

func (s Security) GetCSRFKey() []byte {
	return s.csrfKey
}

func (s Security) GetSecureCookies() bool {
	return s.SecureCookies
}

// GetWorkspaceIdleTimeout is how long an unused browser workspace is kept.
func (s Security) GetWorkspaceIdleTimeout() time.Duration {
	return s.WorkspaceIdleTimeout
}
