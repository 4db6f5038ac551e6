package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/themill/wiz"
)

const contextShortHelp = `Inspect a WIZ_CONTEXT value`
const contextLongHelp = `
Decode the WIZ_CONTEXT environment variable a prior "wiz run" left behind,
printing the registries and qualified package identifiers it names.

With no argument, reads WIZ_CONTEXT from the current environment. With one
argument, decodes that string instead.
`

type contextCommand struct{}

func (cmd *contextCommand) Name() string      { return "context" }
func (cmd *contextCommand) Args() string      { return "decode [value]" }
func (cmd *contextCommand) ShortHelp() string { return contextShortHelp }
func (cmd *contextCommand) LongHelp() string  { return contextLongHelp }
func (cmd *contextCommand) Hidden() bool      { return false }

func (cmd *contextCommand) Register(fs *flag.FlagSet) {}

func (cmd *contextCommand) Run(args []string) error {
	if len(args) == 0 || args[0] != "decode" {
		return errors.New(`context requires a "decode" subcommand`)
	}
	args = args[1:]

	var encoded string
	switch len(args) {
	case 0:
		encoded = os.Getenv("WIZ_CONTEXT")
		if encoded == "" {
			return errors.New("WIZ_CONTEXT is not set in the environment")
		}
	case 1:
		encoded = args[0]
	default:
		return errors.Errorf("too many args (%d)", len(args))
	}

	registries, packageIDs, err := wiz.DecodeWizContext(encoded)
	if err != nil {
		return err
	}

	out := struct {
		Registries []string `json:"registries"`
		PackageIDs []string `json:"package_ids"`
	}{Registries: registries, PackageIDs: packageIDs}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wiz: decoded %d package(s) from %d registr(y/ies)\n", len(packageIDs), len(registries))
	return nil
}
