package server

import "github.com/fatih/color"

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgBlue),
	"PUT":    color.New(color.FgCyan),
	"DELETE": color.New(color.FgYellow),
	"PATCH":  color.New(color.FgMagenta),
}

var (
	grey   = color.New(color.FgHiBlack)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
)

func methodColour(method string) *color.Color {
	if c, ok := methodColors[method]; ok {
		return c
	}
	return grey
}

// statusColour colours a response status for the DEV request log.
func statusColour(status int) *color.Color {
	switch {
	case status >= 500:
		return red
	case status >= 400:
		return yellow
	case status >= 300:
		return cyan
	}
	return green
}
