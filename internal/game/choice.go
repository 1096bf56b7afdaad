// Package game knows where the background bundles live in a manosaba
// install and how to switch them between the two title characters.
package game

import "strings"

// Choice picks whose picture the game shows.
type Choice int

const (
	// Emma writes Emma's picture into the patched bundle.
	Emma Choice = iota + 1
	// Shiro restores the shipped bundle from its backup.
	Shiro
)

func (c Choice) String() string {
	switch c {
	case Emma:
		return "emma"
	case Shiro:
		return "shiro"
	}
	return "unknown"
}

var choices = map[string]Choice{
	"1": Emma, "艾玛": Emma, "emma": Emma, "a": Emma,
	"2": Shiro, "希罗": Shiro, "shiro": Shiro, "s": Shiro,
}

// ParseChoice accepts the menu number, the Chinese or romanized name, or its initial.
func ParseChoice(s string) (Choice, bool) {
	c, ok := choices[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}
