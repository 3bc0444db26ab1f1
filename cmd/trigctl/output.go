package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jrsteele09/trigpoint-web/backend"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
)

func newTable(w io.Writer, headers ...any) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	return tw
}

func printBikes(w io.Writer, bikes []backend.Bike) {
	if len(bikes) == 0 {
		mutedColor.Fprintln(w, "No bikes.")
		return
	}
	tw := newTable(w, "ID", "NAME", "BRAND", "YEAR")
	for _, b := range bikes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Brand, b.YearString())
	}
	_ = tw.Flush()
}

func printBike(w io.Writer, b backend.Bike) {
	titleColor.Fprintln(w, b.Name)
	fmt.Fprintf(w, "  id:    %s\n", b.ID)
	fmt.Fprintf(w, "  brand: %s\n", b.Brand)
	if y := b.YearString(); y != "" {
		fmt.Fprintf(w, "  year:  %s\n", y)
	}
	if b.HeroURL != "" {
		fmt.Fprintf(w, "  hero:  %s\n", b.HeroURL)
	}
}

func printSheds(w io.Writer, sheds []backend.Shed) {
	if len(sheds) == 0 {
		mutedColor.Fprintln(w, "No sheds.")
		return
	}
	tw := newTable(w, "ID", "NAME", "VISIBILITY")
	for _, s := range sheds {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Visibility)
	}
	_ = tw.Flush()
}

func printSteps(w io.Writer, steps []backend.KinematicsStep, selected int) {
	tw := newTable(w, "STEP", "SHOCK STROKE", "REAR TRAVEL", "LEVERAGE")
	for i, s := range steps {
		marker := " "
		if i == selected {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s%d\t%.1f\t%.1f\t%.2f\n", marker, i+1, s.ShockStroke, s.RearTravel, s.LeverageRatio)
	}
	_ = tw.Flush()
}
