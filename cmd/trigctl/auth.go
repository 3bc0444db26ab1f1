package main

import (
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/spf13/cobra"
)

func (a *app) loginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Log in and remember the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.ws.Session.Login(cmd.Context(), args[0], password)
			a.ws.Nav.TakeRedirect()
			st := a.ws.Session.State()
			if err != nil {
				return a.report(st.Message, err)
			}
			successColor.Fprintf(a.out, "Logged in as %s\n", st.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.ws.Session.Logout(cmd.Context())
			a.ws.Nav.TakeRedirect()
			a.ws.Nav.SignalReady()
			successColor.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd, nil, a.ws.Session.Guard()); err != nil {
				return err
			}
			u := a.ws.Session.State().User
			titleColor.Fprintln(a.out, u.Email)
			if u.Role != "" {
				mutedColor.Fprintf(a.out, "role: %s\n", u.Role)
			}
			if !u.IsVerified() {
				mutedColor.Fprintln(a.out, "email not verified")
			}
			return nil
		},
	}
}

func (a *app) registerCommand() *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confirm == "" {
				confirm = password
			}
			err := a.ws.Session.Register(cmd.Context(), args[0], password, confirm)
			return a.report(a.ws.Session.State().Message, err)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify an email address with the token from the verification link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pageload.Params{"token": args[0]}
			a.ws.Nav.Run(cmd.Context(), []pageload.Hook{a.ws.Session.LoadVerifyToken}, params)
			st := a.ws.Session.State()
			if !st.VerifySuccess {
				return a.report(st.Message, errVerifyFailed)
			}
			return a.report(st.Message, nil)
		},
	}
}

func (a *app) forgotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot EMAIL",
		Short: "Request a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.ws.Session.ForgotPassword(cmd.Context(), args[0])
			return a.report(a.ws.Session.State().Message, err)
		},
	}
}

func (a *app) resetCommand() *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "reset TOKEN",
		Short: "Set a new password with the token from the reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if confirm == "" {
				confirm = password
			}
			err := a.ws.Session.ResetPassword(cmd.Context(), args[0], password, confirm)
			a.ws.Nav.TakeRedirect()
			return a.report(a.ws.Session.State().Message, err)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
