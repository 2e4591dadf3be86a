// Package cli implements hsctl, the relay's admin command line.
package cli

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Hash       *HashCommand
	ChatScript *ChatScriptCommand
	Visitor    *VisitorCommand
	Deliveries *DeliveriesCommand
	Prune      *PruneCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "hsctl"
	parser.LongDescription = "Admin tool for the HubSpot tracking relay."

	cmds := &commands{
		Hash:       &HashCommand{globals: &globals, out: out},
		ChatScript: &ChatScriptCommand{globals: &globals, out: out},
		Visitor:    &VisitorCommand{globals: &globals, out: out},
		Deliveries: &DeliveriesCommand{globals: &globals, out: out},
		Prune:      &PruneCommand{globals: &globals, out: out},
	}

	parser.AddCommand("hash", "Print the domain hash", "Print the domain hash that prefixes the hstc and hssc cookies.", cmds.Hash)
	parser.AddCommand("chat-script", "Print the chat loader", "Print the inline loader script for the conversations widget.", cmds.ChatScript)
	parser.AddCommand("visitor", "Decode tracking cookies", "Decode a Cookie header into visitor id, session and page view counts.", cmds.Visitor)
	parser.AddCommand("deliveries", "List outbound deliveries", "List recent outbound deliveries or summarize them per kind.", cmds.Deliveries)
	parser.AddCommand("prune", "Apply retention pruning", "Delete journaled deliveries older than the retention period.", cmds.Prune)

	return parser, &globals, cmds
}

// Run is the main entry point for hsctl using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil, os.Stdout)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand, writing its output to out.
func RunWithArgs(version string, args []string, out io.Writer) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(out, "hsctl %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
