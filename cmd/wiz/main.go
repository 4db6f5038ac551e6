package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

const configName = "wizconfig.toml"

var verbose = flag.Bool("v", false, "enable verbose logging")

// command mirrors the teacher's subcommand interface so every
// subcommand's help text and flag registration fit the same dispatch
// loop.
type command interface {
	Name() string           // "resolve"
	Args() string           // "<requirement...>"
	ShortHelp() string      // "Resolve a set of requirements into an environment"
	LongHelp() string       // full usage text
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool           // indicates whether the command should be hidden from help output
	Run([]string) error
}

func main() {
	commands := []command{
		&resolveCommand{},
		&runCommand{},
		&contextCommand{},
		&initCommand{},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: wiz <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr)
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, c := range commands {
			if !c.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", c.Name(), c.ShortHelp())
			}
		}
		w.Flush()
		fmt.Fprintln(os.Stderr)
	}

	if len(os.Args) <= 1 || len(os.Args) == 2 && (strings.Contains(strings.ToLower(os.Args[1]), "help") || strings.ToLower(os.Args[1]) == "-h") {
		usage()
		os.Exit(1)
	}

	for _, c := range commands {
		if name := c.Name(); os.Args[1] == name {
			fs := flag.NewFlagSet(name, flag.ExitOnError)
			fs.BoolVar(verbose, "v", false, "enable verbose logging")

			c.Register(fs)
			resetUsage(fs, c.Name(), c.Args(), c.LongHelp())

			if err := fs.Parse(os.Args[2:]); err != nil {
				fs.Usage()
				os.Exit(1)
			}

			if err := c.Run(fs.Args()); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Fprintf(os.Stderr, "%s: no such command\n", os.Args[1])
	usage()
	os.Exit(1)
}

func resetUsage(fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiz %s %s\n", name, args)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, strings.TrimSpace(longHelp))
		fmt.Fprintln(os.Stderr)
		if hasFlags {
			fmt.Fprintln(os.Stderr, "Flags:")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, flagBlock.String())
		}
	}
}

// findConfigFromWD searches upward from the working directory for
// wizconfig.toml, returning the directory it lives in, or "" if none is
// found (in which case the caller should fall back to config.Default()).
func findConfigFromWD() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigRoot(wd)
}

func findConfigRoot(from string) string {
	for {
		if _, err := os.Stat(filepath.Join(from, configName)); err == nil {
			return from
		}
		parent := filepath.Dir(from)
		if parent == from {
			return ""
		}
		from = parent
	}
}

func vlogf(format string, args ...interface{}) {
	if !*verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "wiz: "+format+"\n", args...)
}
