package config

import (
	"errors"
	"fmt"
	"os"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	BackendConfig
	SecurityConfig
	StorageConfig
}

type mainConfig struct {
	EnvVars
	Backend
	Security
	Storage
}

var _ Config = (*mainConfig)(nil)

// New loads an optional .env file and then reads the process environment.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return parse(env.Options{})
}

// FromMap builds a Config from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.Sanitize()
	return &c, nil
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *mainConfig) Sanitize() {
	c.EnvVars.Sanitize()
	c.Backend.Sanitize()
	c.Security.Sanitize()
	c.Storage.Sanitize()
}
