package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/themill/wiz"
	"github.com/themill/wiz/internal/config"
	"github.com/themill/wiz/internal/registryfile"
)

const resolveShortHelp = `Resolve requirements against the configured registries`
const resolveLongHelp = `
Resolve one or more requirement strings (e.g. "python>=3.9", "ns::foo==1.2")
against the registries named in wizconfig.toml, printing the resulting
environment as JSON.

If wizconfig.toml can't be found by searching upward from the working
directory, wiz falls back to the default configuration, which lists no
registries: only directories given with -registry are searched.
`

type resolveCommand struct {
	registryFlag multiFlag
	history      bool
	platform     string
	arch         string
}

func (cmd *resolveCommand) Name() string      { return "resolve" }
func (cmd *resolveCommand) Args() string      { return "<requirement...>" }
func (cmd *resolveCommand) ShortHelp() string { return resolveShortHelp }
func (cmd *resolveCommand) LongHelp() string  { return resolveLongHelp }
func (cmd *resolveCommand) Hidden() bool      { return false }

func (cmd *resolveCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.registryFlag, "registry", "additional registry directory (repeatable)")
	fs.BoolVar(&cmd.history, "history", false, "include the resolution trace in the output")
	fs.StringVar(&cmd.platform, "platform", "", "override the configured platform")
	fs.StringVar(&cmd.arch, "arch", "", "override the configured arch")
}

func (cmd *resolveCommand) Run(args []string) error {
	if len(args) == 0 {
		return errors.New("resolve requires at least one requirement")
	}

	requests := make([]wiz.Requirement, 0, len(args))
	for _, a := range args {
		req, err := wiz.ParseRequirement(a)
		if err != nil {
			return errors.Wrapf(err, "parsing requirement %q", a)
		}
		requests = append(requests, req)
	}

	cfgDir := findConfigFromWD()
	var cfg config.Config
	var err error
	if cfgDir != "" {
		cfg, err = config.Load(filepath.Join(cfgDir, configName))
	} else {
		cfg = config.Default()
	}
	if err != nil {
		return err
	}
	if cmd.platform != "" {
		cfg.Platform = cmd.platform
	}
	if cmd.arch != "" {
		cfg.Arch = cmd.arch
	}
	cfg.Registries = append(cfg.Registries, cmd.registryFlag...)

	sys, err := cfg.SystemDescriptor()
	if err != nil {
		return err
	}

	var records []wiz.DefinitionRecord
	for _, reg := range cfg.Registries {
		vlogf("loading registry %s", reg)
		recs, err := registryfile.Load(reg)
		if err != nil {
			return errors.Wrapf(err, "loading registry %s", reg)
		}
		records = append(records, recs...)
	}

	index, err := wiz.BuildRegistryIndex(records, sys)
	if err != nil {
		return err
	}

	history := wiz.NewHistoryLog()
	opts, err := cfg.ResolveOptions(history)
	if err != nil {
		return err
	}

	resolved, err := wiz.Resolve(index, requests, opts)
	if err != nil {
		return err
	}

	out := struct {
		*wiz.Context
		History []wiz.TraceEntry `json:"history,omitempty"`
	}{Context: resolved}
	if cmd.history {
		out.History = history.Entries()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	for _, w := range resolved.Warnings {
		fmt.Fprintf(os.Stderr, "wiz: warning: %s\n", w)
	}
	return nil
}

// multiFlag accumulates repeatable -registry flags into a string slice.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
