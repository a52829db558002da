package cli

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// command is one REPL command. Commands with needsAuth are hidden from help
// and refused until the user logs in.
type command struct {
	usage     string
	needsAuth bool
	run       func(ctx context.Context, args []string) error
}

// execIface defines the minimal surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	commands() map[string]command
}

func helpText(cmds map[string]command, loggedIn bool) string {
	names := make([]string, 0, len(cmds))
	for name, c := range cmds {
		if c.needsAuth && !loggedIn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s", cmds[name].usage)
	}
	b.WriteString("\n  help\n  exit")
	return b.String()
}

// runREPL starts a simple read–eval–print loop for the GophDiary CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and hands the remaining tokens to its handler. Handler errors are
// printed and the loop goes on. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	cmds := a.commands()
	for {
		printlnFn(fmt.Sprintf("diary %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(helpText(cmds, a.isLoggedIn()))
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := cmds[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if c.needsAuth && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}
		if err := c.run(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
