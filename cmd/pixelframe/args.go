package main

import (
	"strings"

	"github.com/urfave/cli/v2"
)

// takesValue reports whether the flag token names a flag in flags that
// consumes the following argument. The second result is false if the flag
// is unknown.
func takesValue(flags []cli.Flag, token string) (bool, bool) {
	name, _, inline := strings.Cut(strings.TrimLeft(token, "-"), "=")
	for _, f := range flags {
		for _, n := range f.Names() {
			if n == name {
				_, isBool := f.(*cli.BoolFlag)
				return !isBool && !inline, true
			}
		}
	}
	return false, false
}

func isFlag(token string) bool {
	return len(token) > 1 && token[0] == '-'
}

// reorderArgs moves any flags given after the positional arguments of a
// command in front of them, as the flag parser stops at the first
// positional argument. Global flags given after the command name are moved
// in front of it.
func reorderArgs(app *cli.App, args []string) []string {
	if len(args) == 0 {
		return args
	}

	globals := []string{}
	i := 1

	// Global flags up to the command name
	for ; i < len(args) && isFlag(args[i]) && args[i] != "--"; i++ {
		globals = append(globals, args[i])
		if value, _ := takesValue(app.Flags, args[i]); value && i+1 < len(args) {
			i++
			globals = append(globals, args[i])
		}
	}
	if i >= len(args) {
		return append([]string{args[0]}, globals...)
	}

	name := args[i]
	cmd := app.Command(name)
	i++
	if cmd == nil {
		out := append([]string{args[0]}, globals...)
		out = append(out, name)
		return append(out, args[i:]...)
	}

	var flags, positional []string
	for ; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if !isFlag(args[i]) {
			positional = append(positional, args[i])
			continue
		}

		value, known := takesValue(cmd.Flags, args[i])
		dst := &flags
		if !known {
			if v, global := takesValue(app.Flags, args[i]); global {
				value, dst = v, &globals
			}
		}

		*dst = append(*dst, args[i])
		if value && i+1 < len(args) {
			i++
			*dst = append(*dst, args[i])
		}
	}

	out := append([]string{args[0]}, globals...)
	out = append(out, name)
	out = append(out, flags...)
	return append(out, positional...)
}
