package main

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/jrsteele09/trigpoint-web/backend"
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/jrsteele09/trigpoint-web/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) bikesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bikes",
		Short: "List and manage your bikes",
	}
	cmd.AddCommand(a.bikesListCommand(), a.bikesShowCommand(), a.bikesAddCommand(), a.bikesRemoveCommand())
	return cmd
}

func (a *app) bikesListCommand() *cobra.Command {
	var filter store.BikeFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bikes, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd, nil, a.ws.Session.Guard(), a.ws.Bikes.ListHook()); err != nil {
				return err
			}
			if msg := a.ws.Bikes.State().Message; msg != "" {
				return errors.New(msg)
			}
			printBikes(a.out, a.ws.Bikes.View(filter.Match))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Brand, "brand", "", "Brand contains")
	cmd.Flags().StringVar(&filter.Model, "model", "", "Name contains")
	cmd.Flags().StringVar(&filter.Year, "year", "", "Exact model year")
	cmd.Flags().StringVar(&filter.Text, "text", "", "Brand, name or year contains")
	return cmd
}

func (a *app) bikesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show BIKE_ID",
		Short: "Show one bike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pageload.Params{"bike_id": args[0]}
			if err := a.load(cmd, params, a.ws.Session.Guard(), a.ws.Bikes.DetailHook("bike_id")); err != nil {
				return err
			}
			st := a.ws.Bikes.State()
			if st.Current == nil {
				return errors.New(st.Message)
			}
			printBike(a.out, *st.Current)
			return nil
		},
	}
}

func (a *app) bikesAddCommand() *cobra.Command {
	var brand, year, hero string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a bike, with an optional hero image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := store.ParseBikeForm(args[0], brand, year)
			if err != nil {
				return err
			}
			media, err := readHero(hero)
			if err != nil {
				return err
			}
			if err := a.load(cmd, nil, a.ws.Session.Guard()); err != nil {
				return err
			}

			a.ws.Bikes.ResetCreate()
			id, err := a.ws.Bikes.Create(cmd.Context(), in, media)
			msg := a.ws.Bikes.State().Message
			if id == "" {
				return a.report(msg, err)
			}
			// A failed hero upload still created the bike.
			if err != nil {
				errorColor.Fprintln(a.out, msg)
			} else {
				successColor.Fprintln(a.out, msg)
			}
			a.ws.Nav.TakeRedirect()
			a.ws.Nav.SignalReady()
			mutedColor.Fprintf(a.out, "id: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "Brand")
	cmd.Flags().StringVar(&year, "year", "", "Model year")
	cmd.Flags().StringVar(&hero, "hero", "", "Path to a hero image (max 5MB)")
	return cmd
}

func readHero(path string) (*backend.Media, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "hero image")
	}
	if info.Size() > store.MaxHeroBytes {
		return nil, errors.New("Image too large (max 5MB).")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "hero image")
	}
	return &backend.Media{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func (a *app) bikesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm BIKE_ID",
		Aliases: []string{"delete"},
		Short:   "Delete a bike",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, nil, a.ws.Session.Guard()); err != nil {
				return err
			}
			err := a.ws.Bikes.Delete(cmd.Context(), args[0])
			if rerr := a.follow(); rerr != nil {
				return rerr
			}
			return a.report(a.ws.Bikes.State().Message, err)
		},
	}
}
