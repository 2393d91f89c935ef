package diag

import "github.com/fatih/color"

// colorAttrs maps the color names used across the build console to ANSI
// attributes. The warning family's "darkred" is plain red (ESC[31m).
var colorAttrs = map[string]color.Attribute{
	"bold":      color.Bold,
	"darkred":   color.FgRed,
	"red":       color.FgHiRed,
	"darkgreen": color.FgGreen,
	"green":     color.FgHiGreen,
	"darkgray":  color.FgHiBlack,
	"lightgray": color.FgWhite,
	"white":     color.FgHiWhite,
	"blue":      color.FgHiBlue,
	"yellow":    color.FgHiYellow,
}

// defaultColors are the per-level colors applied when a record carries no
// explicit override. Only the chatty debug levels and warnings are
// tinted; errors and criticals stay plain.
var defaultColors = map[Level]string{
	LevelDebug2:  "lightgray",
	LevelDebug:   "darkgray",
	LevelWarning: "darkred",
}

// Colorize wraps text in the escape sequence for the named color.
// Unknown names return the text unchanged. Emission of escape codes is
// unconditional here; the sink decides whether color is enabled.
func Colorize(name, text string) string {
	attr, ok := colorAttrs[name]
	if !ok {
		return text
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(text)
}
