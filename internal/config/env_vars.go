package config

import (
	"strings"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
}

type EnvVars struct {
	Port    string `env:"PORT" envDefault:"3000"`
	AppName string `env:"APP_NAME" envDefault:"Trig Point"`
	Env     string `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e *EnvVars) Sanitize() {
	e.Port = strings.TrimSpace(e.Port)
	if e.Port == "" {
		e.Port = "3000"
	}
	if e.Port[0] != ':' {
		e.Port = ":" + e.Port
	}
	e.Env = strings.ToUpper(strings.TrimSpace(e.Env))
	if e.Env == "" {
		e.Env = "DEV"
	}
}

// GetPort returns the listen address, always starting with ':'.
func (e EnvVars) GetPort() string {
	return e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return e.Env == "DEV"
}
