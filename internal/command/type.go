// Package command classifies chat text into bot commands and dispatches them
// to reply handlers.
package command

import "strings"

// Type is the closed set of commands the bot understands.
type Type int

const (
	Invalid Type = iota
	Start
	Help
	Balance
)

type typeInfo struct {
	name        string
	prefix      string
	description string
}

var types = map[Type]typeInfo{
	Start:   {"start", "/start", "Welcome message and feature overview"},
	Help:    {"help", "/help", "Show the command list"},
	Balance: {"balance", "/balance", "Show the account balance (demo data)"},
	Invalid: {"invalid", "", "Unknown command"},
}

// Types lists every command type, Invalid last.
func Types() []Type {
	return []Type{Start, Help, Balance, Invalid}
}

// String returns the lower-case command name.
func (t Type) String() string {
	if info, ok := types[t]; ok {
		return info.name
	}
	return "unknown"
}

// Prefix returns the literal command token, or "" for Invalid.
func (t Type) Prefix() string {
	return types[t].prefix
}

// Description returns the one-line help text for the command.
func (t Type) Description() string {
	return types[t].description
}

// Classify maps text to the command whose prefix it starts with. The longest
// matching prefix wins. Blank or unmatched text is Invalid.
//
// Matching is by prefix only, so "/helpme" classifies as Help.
func Classify(text string) Type {
	text = strings.TrimSpace(text)
	if text == "" {
		return Invalid
	}
	best := Invalid
	bestLen := 0
	for _, t := range Types() {
		prefix := t.Prefix()
		if prefix == "" || len(prefix) <= bestLen {
			continue
		}
		if strings.HasPrefix(text, prefix) {
			best = t
			bestLen = len(prefix)
		}
	}
	return best
}
