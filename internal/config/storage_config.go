package config

import (
	"strings"
	"time"
)

type StorageConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetTokenSealKey() string
	GetTokenMaxAge() time.Duration
}

// Storage configures where access tokens are persisted. An empty Redis
// address keeps them in memory.
type Storage struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	TokenSealKey  string        `env:"TOKEN_SEAL_KEY"`
	TokenMaxAge   time.Duration `env:"TOKEN_MAX_AGE" envDefault:"720h"`
}

var _ StorageConfig = Storage{}

func (s *Storage) Sanitize() {
	s.RedisAddr = strings.TrimSpace(s.RedisAddr)
	s.TokenSealKey = strings.TrimSpace(s.TokenSealKey)
	if s.RedisDB < 0 {
		s.RedisDB = 0
	}
	if s.TokenMaxAge <= 0 {
		s.TokenMaxAge = 720 * time.Hour
	}
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

// GetTokenSealKey is the hex key sealing persisted tokens, empty for none.
func (s Storage) GetTokenSealKey() string {
	return s.TokenSealKey
}

func (s Storage) GetTokenMaxAge() time.Duration {
	return s.TokenMaxAge
}
