package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/themill/wiz"
	"github.com/themill/wiz/internal/cache"
	"github.com/themill/wiz/internal/config"
	"github.com/themill/wiz/internal/launch"
	"github.com/themill/wiz/internal/registryfile"
)

const runShortHelp = `Resolve requirements and run a command inside the result`
const runLongHelp = `
Resolve one or more requirements, then exec a command with the resolved
environment and command aliases overlaid on the current process's own.

Separate the requirement list from the command with "--":

    wiz run python>=3.9 -- python script.py

A resolution cache directory may be supplied with -cache-dir; entries are
keyed by a hash of the requested requirements, so repeated invocations with
the same requirements skip re-resolving.
`

type runCommand struct {
	registryFlag multiFlag
	cacheDir     string
	timeout      time.Duration
}

func (cmd *runCommand) Name() string      { return "run" }
func (cmd *runCommand) Args() string      { return "<requirement...> -- <command...>" }
func (cmd *runCommand) ShortHelp() string { return runShortHelp }
func (cmd *runCommand) LongHelp() string  { return runLongHelp }
func (cmd *runCommand) Hidden() bool      { return false }

func (cmd *runCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.registryFlag, "registry", "additional registry directory (repeatable)")
	fs.StringVar(&cmd.cacheDir, "cache-dir", "", "directory to cache resolved environments in (disabled if empty)")
	fs.DurationVar(&cmd.timeout, "inactivity-timeout", launch.DefaultInactivityTimeout, "kill the process after this long without output")
}

func (cmd *runCommand) Run(args []string) error {
	splitAt := -1
	for i, a := range args {
		if a == "--" {
			splitAt = i
			break
		}
	}
	if splitAt < 0 {
		return errors.New(`run requires a "--" separator between requirements and the command to run`)
	}
	reqArgs, cmdArgs := args[:splitAt], args[splitAt+1:]
	if len(reqArgs) == 0 {
		return errors.New("run requires at least one requirement before --")
	}
	if len(cmdArgs) == 0 {
		return errors.New("run requires a command after --")
	}

	resolved, err := cmd.resolve(reqArgs)
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return launch.Run(context.Background(), signalCtx, resolved, launch.Options{
		Args:              cmdArgs,
		InactivityTimeout: cmd.timeout,
	})
}

func (cmd *runCommand) resolve(reqArgs []string) (*wiz.Context, error) {
	requests := make([]wiz.Requirement, 0, len(reqArgs))
	for _, a := range reqArgs {
		req, err := wiz.ParseRequirement(a)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing requirement %q", a)
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
		return nil, err
	}
	cfg.Registries = append(cfg.Registries, cmd.registryFlag...)

	var c *cache.Cache
	var key string
	if cmd.cacheDir != "" {
		c, err = cache.New(cmd.cacheDir)
		if err != nil {
			return nil, err
		}
		key = cacheKey(cfg.Registries, reqArgs)
		if hit, ok, err := c.Get(context.Background(), key); err == nil && ok {
			vlogf("cache hit for %s", key)
			return hit, nil
		} else if err != nil {
			vlogf("cache read failed: %v", err)
		}
	}

	sys, err := cfg.SystemDescriptor()
	if err != nil {
		return nil, err
	}

	var records []wiz.DefinitionRecord
	for _, reg := range cfg.Registries {
		recs, err := registryfile.Load(reg)
		if err != nil {
			return nil, errors.Wrapf(err, "loading registry %s", reg)
		}
		records = append(records, recs...)
	}

	index, err := wiz.BuildRegistryIndex(records, sys)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.ResolveOptions(nil)
	if err != nil {
		return nil, err
	}

	resolved, err := wiz.Resolve(index, requests, opts)
	if err != nil {
		return nil, err
	}

	if c != nil {
		if err := c.Put(context.Background(), key, resolved); err != nil {
			vlogf("cache write failed: %v", err)
		}
	}
	return resolved, nil
}

// cacheKey derives a stable digest of the registries and requirement
// strings a resolution was requested with, so unrelated requirement sets
// never collide on the same cache entry.
func cacheKey(registries, requirements []string) string {
	var ids []string
	ids = append(ids, registries...)
	ids = append(ids, requirements...)
	return hashHex(ids)
}
