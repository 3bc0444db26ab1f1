package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBackendOrigin() string
	GetMediaBaseURL() string
	GetRequestTimeout() time.Duration
	GetAuthTimeout() time.Duration
	GetUploadTimeout() time.Duration
}

type Backend struct {
	Origin         string        `env:"BACKEND_ORIGIN" envDefault:"http://127.0.0.1:9000"`
	MediaBaseURL   string        `env:"MEDIA_BASE_URL"`
	RequestTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"20s"`
	AuthTimeout    time.Duration `env:"AUTH_TIMEOUT" envDefault:"10s"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`
}

var _ BackendConfig = Backend{}

const minTimeout = time.Second

func (b *Backend) Sanitize() {
	b.Origin = strings.TrimRight(strings.TrimSpace(b.Origin), "/")
	b.MediaBaseURL = strings.TrimRight(strings.TrimSpace(b.MediaBaseURL), "/")
	if b.MediaBaseURL == "" {
		b.MediaBaseURL = b.Origin
	}
	b.RequestTimeout = max(b.RequestTimeout, minTimeout)
	b.AuthTimeout = max(b.AuthTimeout, minTimeout)
	b.UploadTimeout = max(b.UploadTimeout, minTimeout)
}

func (b Backend) GetBackendOrigin() string {
	return b.Origin
}

// GetMediaBaseURL is the prefix of hero image URLs derived from a media id.
func (b Backend) GetMediaBaseURL() string {
	return b.MediaBaseURL
}

func (b Backend) GetRequestTimeout() time.Duration {
	return b.RequestTimeout
}

func (b Backend) GetAuthTimeout() time.Duration {
	return b.AuthTimeout
}

func (b Backend) GetUploadTimeout() time.Duration {
	return b.UploadTimeout
}
