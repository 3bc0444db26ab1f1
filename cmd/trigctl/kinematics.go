package main

import (
	"github.com/jrsteele09/trigpoint-web/pageload"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) kinematicsCommand() *cobra.Command {
	var step int
	cmd := &cobra.Command{
		Use:   "kinematics BIKE_ID",
		Short: "Solve and print the suspension kinematics of a bike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pageload.Params{"bike_id": args[0]}
			if err := a.load(cmd, params, a.ws.Session.Guard(), a.ws.Kinematics.Hook("bike_id")); err != nil {
				return err
			}
			if cmd.Flags().Changed("step") {
				a.ws.Kinematics.SelectStep(step - 1)
			}
			st := a.ws.Kinematics.State()
			if st.Error != "" {
				return errors.New(st.Error)
			}
			if !st.HasResult {
				mutedColor.Fprintln(a.out, "No kinematics for this bike yet.")
				return nil
			}
			printSteps(a.out, st.Steps, st.SelectedStep)
			return nil
		},
	}
	cmd.Flags().IntVar(&step, "step", 1, "Step to highlight")
	return cmd
}
