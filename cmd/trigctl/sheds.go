package main

import (
	"fmt"

	"github.com/jrsteele09/trigpoint-web/internal/utils"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) shedsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheds",
		Short: "List and manage your sheds",
	}
	cmd.AddCommand(
		a.shedsListCommand(),
		a.shedsShowCommand(),
		a.shedsAddCommand(),
		a.shedsRemoveCommand(),
		a.shedsToggleCommand(),
	)
	return cmd
}

func (a *app) shedsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sheds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd, nil, a.ws.Session.Guard(), a.ws.Sheds.ListHook()); err != nil {
				return err
			}
			st := a.ws.Sheds.State()
			if st.Message != "" {
				return errors.New(st.Message)
			}
			printSheds(a.out, st.Items)
			return nil
		},
	}
}

// loadShed runs the shed page hooks for shedID.
func (a *app) loadShed(cmd *cobra.Command, shedID string) (store.MembershipState, error) {
	params := pageload.Params{"shed_id": shedID}
	if err := a.load(cmd, params, a.ws.Session.Guard(), a.ws.Shed.Hook("shed_id")); err != nil {
		return store.MembershipState{}, err
	}
	st := a.ws.Shed.State()
	if st.Shed == nil {
		return st, errors.New(st.Message)
	}
	return st, nil
}

func (a *app) shedsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show SHED_ID",
		Short: "Show a shed and its bikes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadShed(cmd, args[0])
			if err != nil {
				return err
			}
			titleColor.Fprintln(a.out, st.Shed.Name)
			if d := utils.Value(st.Shed.Description); d != "" {
				fmt.Fprintln(a.out, d)
			}
			mutedColor.Fprintf(a.out, "%s\n\n", st.Shed.Visibility)
			printBikes(a.out, st.ShedBikes)
			if st.Message != "" {
				errorColor.Fprintln(a.out, st.Message)
			}
			return nil
		},
	}
}

func (a *app) shedsAddCommand() *cobra.Command {
	var description, visibility string
	cmd := &cobra.Command{
		Use:   "add [NAME]",
		Short: "Create a shed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			in, err := store.NormalizeShedInput(name, description, visibility)
			if err != nil {
				return err
			}
			if err := a.load(cmd, nil, a.ws.Session.Guard()); err != nil {
				return err
			}
			a.ws.Sheds.ResetCreate()
			id, err := a.ws.Sheds.Create(cmd.Context(), in, nil)
			if err != nil {
				return a.report(a.ws.Sheds.State().Message, err)
			}
			a.ws.Nav.TakeRedirect()
			a.ws.Nav.SignalReady()
			successColor.Fprintln(a.out, a.ws.Sheds.State().Message)
			mutedColor.Fprintf(a.out, "id: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&visibility, "visibility", "private", "private, unlisted or public")
	return cmd
}

func (a *app) shedsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm SHED_ID",
		Aliases: []string{"delete"},
		Short:   "Delete a shed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, nil, a.ws.Session.Guard()); err != nil {
				return err
			}
			err := a.ws.Sheds.Delete(cmd.Context(), args[0])
			if rerr := a.follow(); rerr != nil {
				return rerr
			}
			return a.report(a.ws.Sheds.State().Message, err)
		},
	}
}

func (a *app) shedsToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle SHED_ID BIKE_ID",
		Short: "Add a bike to a shed, or remove it if it is already there",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shedID, bikeID := args[0], args[1]
			if _, err := a.loadShed(cmd, shedID); err != nil {
				return err
			}
			err := a.ws.Shed.Toggle(cmd.Context(), shedID, bikeID)
			if rerr := a.follow(); rerr != nil {
				return rerr
			}
			if err != nil {
				return a.report(a.ws.Shed.State().Message, err)
			}
			if a.ws.Shed.Selected(bikeID) {
				successColor.Fprintf(a.out, "Added %s to %s.\n", bikeID, shedID)
			} else {
				successColor.Fprintf(a.out, "Removed %s from %s.\n", bikeID, shedID)
			}
			return nil
		},
	}
}
