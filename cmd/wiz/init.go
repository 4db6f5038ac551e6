package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

const initShortHelp = `Scaffold a new registry directory from a template`
const initLongHelp = `
Initialize a new registry at the given path by copying a template tree of
definition files into it. If no template is given, an empty registry
directory (and a starter wizconfig.toml alongside it) is created.

Note: init refuses to overwrite an existing destination.
`

type initCommand struct {
	template string
}

func (cmd *initCommand) Name() string      { return "init" }
func (cmd *initCommand) Args() string      { return "<path>" }
func (cmd *initCommand) ShortHelp() string { return initShortHelp }
func (cmd *initCommand) LongHelp() string  { return initLongHelp }
func (cmd *initCommand) Hidden() bool      { return false }

func (cmd *initCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.template, "template", "", "existing registry directory to copy as a starting point")
}

func (cmd *initCommand) Run(args []string) error {
	if len(args) != 1 {
		return errors.Errorf("init takes exactly one path argument, got %d", len(args))
	}
	dest := args[0]

	if _, err := os.Stat(dest); err == nil {
		return errors.Errorf("destination %q already exists", dest)
	} else if !os.IsNotExist(err) {
		return err
	}

	if cmd.template != "" {
		if err := shutil.CopyTree(cmd.template, dest, nil); err != nil {
			return errors.Wrapf(err, "copying template %q to %q", cmd.template, dest)
		}
		vlogf("copied template %s into %s", cmd.template, dest)
	} else {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		vlogf("created empty registry directory %s", dest)
	}

	cfgPath := filepath.Join(filepath.Dir(dest), configName)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		stub := fmt.Sprintf("registries = [%q]\n", dest)
		if err := os.WriteFile(cfgPath, []byte(stub), 0o644); err != nil {
			return err
		}
		vlogf("wrote starter %s", cfgPath)
	}

	return nil
}
