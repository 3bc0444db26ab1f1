package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/internal/config"
	"github.com/jrsteele09/trigpoint-web/server"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/jrsteele09/trigpoint-web/session"
	"github.com/jrsteele09/trigpoint-web/session/tokenrepo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const evictInterval = time.Minute

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	tokens, closeTokens, err := newTokenRepo(c)
	if err != nil {
		return err
	}
	defer closeTokens()

	api := backend.New(c.GetBackendOrigin(),
		backend.WithTimeouts(c.GetRequestTimeout(), c.GetAuthTimeout(), c.GetUploadTimeout()))
	workspaces := workspace.NewRegistry(func(id string) *workspace.Workspace {
		return workspace.New(id, workspace.Deps{API: api, Tokens: tokens, MediaBaseURL: c.GetMediaBaseURL()})
	}, c.GetWorkspaceIdleTimeout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go workspaces.Run(ctx, evictInterval)

	handler, err := server.New(c, workspaces)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// newTokenRepo persists tokens in Redis when REDIS_ADDR is set and in memory
// otherwise.
func newTokenRepo(c config.Config) (session.TokenRepo, func(), error) {
	var sealer *tokenrepo.Sealer
	if key := c.GetTokenSealKey(); key != "" {
		s, err := tokenrepo.NewSealer(key)
		if err != nil {
			return nil, nil, fmt.Errorf("token seal key: %w", err)
		}
		sealer = s
	}

	if c.GetRedisAddr() == "" {
		log.Info().Msg("Tokens kept in memory")
		return tokenrepo.NewInMemoryRepo(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
	}
	log.Info().Str("addr", c.GetRedisAddr()).Msg("Tokens kept in redis")

	opts := []tokenrepo.RedisOption{tokenrepo.WithMaxAge(c.GetTokenMaxAge())}
	if sealer != nil {
		opts = append(opts, tokenrepo.WithRedisSealer(sealer))
	}
	return tokenrepo.NewRedisRepo(client, opts...), func() { _ = client.Close() }, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
