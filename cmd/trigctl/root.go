package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/internal/config"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/server/workspace"
	"github.com/jrsteele09/trigpoint-web/session/tokenrepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cliWorkspace is the key the CLI's token is stored under.
const cliWorkspace = "cli"

var (
	errRedirected   = errors.New("not logged in, run 'trigctl login' first")
	errVerifyFailed = errors.New("verification failed")
)

// app is the state shared by every command: one workspace driven exactly
// as a browser tab would drive it.
type app struct {
	backendURL string
	tokenDir   string
	verbose    bool

	ws  *workspace.Workspace
	out io.Writer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "trigctl",
		Short: "Command-line client for Trig Point",
		Long: titleColor.Sprint("trigctl") + ` talks to the Trig Point backend with the same session
and stores as the web app. Your login is kept in the user config directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "Backend origin (defaults to BACKEND_ORIGIN)")
	root.PersistentFlags().StringVar(&a.tokenDir, "token-dir", "", "Where the login token is kept")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.registerCommand(),
		a.verifyCommand(),
		a.forgotCommand(),
		a.resetCommand(),
		a.bikesCommand(),
		a.shedsCommand(),
		a.kinematicsCommand(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	origin, mediaBase := cfg.GetBackendOrigin(), cfg.GetMediaBaseURL()
	if a.backendURL != "" {
		origin = strings.TrimRight(a.backendURL, "/")
		mediaBase = origin
	}

	dir := a.tokenDir
	if dir == "" {
		if dir, err = defaultTokenDir(); err != nil {
			return err
		}
	}
	var sealer *tokenrepo.Sealer
	if key := cfg.GetTokenSealKey(); key != "" {
		if sealer, err = tokenrepo.NewSealer(key); err != nil {
			return errors.Wrap(err, "TOKEN_SEAL_KEY")
		}
	}

	api := backend.New(origin, backend.WithTimeouts(cfg.GetRequestTimeout(), cfg.GetAuthTimeout(), cfg.GetUploadTimeout()))
	a.ws = workspace.New(cliWorkspace, workspace.Deps{
		API:          api,
		Tokens:       tokenrepo.NewFileRepo(dir, sealer),
		MediaBaseURL: mediaBase,
	})
	log.Debug().Str("backend", origin).Str("tokens", dir).Msg("workspace opened")
	return a.ws.Restore(cmd.Context())
}

func defaultTokenDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config dir")
	}
	return filepath.Join(base, "trigpoint"), nil
}

// load runs hooks the way a page load does. A redirect to login is
// reported as errRedirected; other redirects are printed.
func (a *app) load(cmd *cobra.Command, params pageload.Params, hooks ...pageload.Hook) error {
	if redirect := a.ws.Nav.Run(cmd.Context(), hooks, params); redirect != "" {
		return a.redirected(redirect)
	}
	return nil
}

// follow reports a redirect an action left pending, if any.
func (a *app) follow() error {
	if path, ok := a.ws.Nav.TakeRedirect(); ok {
		return a.redirected(path)
	}
	return nil
}

func (a *app) redirected(path string) error {
	if st := a.ws.Nav.State(); st.Loading {
		mutedColor.Fprintf(a.out, "%s\n", st.Message)
	}
	if path == routes.Login && !a.ws.Session.State().Authenticated {
		return errRedirected
	}
	fmt.Fprintf(a.out, "%s %s\n", mutedColor.Sprint("→"), path)
	return nil
}

// report prints a holder's status message on success. On failure the
// message, when there is one, becomes the error.
func (a *app) report(message string, err error) error {
	if err != nil {
		if message != "" {
			return errors.New(message)
		}
		return err
	}
	if message != "" {
		successColor.Fprintln(a.out, message)
	}
	return nil
}
