// Package config loads wizconfig.toml: the registries list, default
// system descriptor, namespace hints, and solve budgets a cmd/wiz
// invocation runs with. TOML was dep's own manifest format before it
// moved to JSON, and go-toml is what that layer used to read it.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/themill/wiz"
)

// Config is the decoded shape of wizconfig.toml.
type Config struct {
	Registries      []string          `toml:"registries"`
	Platform        string            `toml:"platform"`
	Arch            string            `toml:"arch"`
	OSVersion       string            `toml:"os_version"`
	NamespaceHints  []string          `toml:"namespace_hints"`
	MaxAttempts     int               `toml:"max_attempts"`
	MaxCombinations int               `toml:"max_combinations"`
	IncludeImplicit *bool             `toml:"include_implicit"`
	Environ         map[string]string `toml:"environ"`
}

// Default returns the zero-configuration fallback used when no
// wizconfig.toml is present: no registries, platform/arch left for the
// caller to fill in, and the driver's own default budgets.
func Default() Config {
	return Config{MaxAttempts: 15, MaxCombinations: 10000}
}

// Load reads and decodes path. A missing file is not an error; it yields
// Default().
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// SystemDescriptor builds the wiz.SystemDescriptor this configuration
// describes, parsing OSVersion as a PEP 440 version.
func (c Config) SystemDescriptor() (wiz.SystemDescriptor, error) {
	sd := wiz.SystemDescriptor{Platform: c.Platform, Arch: c.Arch}
	if c.OSVersion != "" {
		v, err := wiz.ParseVersion(c.OSVersion)
		if err != nil {
			return wiz.SystemDescriptor{}, err
		}
		sd.OSVersion = v
	}
	return sd, nil
}

// ResolveOptions builds the wiz.ResolveOptions this configuration
// describes, layered under the caller-supplied history log.
func (c Config) ResolveOptions(history *wiz.HistoryLog) (wiz.ResolveOptions, error) {
	sys, err := c.SystemDescriptor()
	if err != nil {
		return wiz.ResolveOptions{}, err
	}
	hints := make(map[string]bool, len(c.NamespaceHints))
	for _, h := range c.NamespaceHints {
		hints[h] = true
	}
	includeImplicit := true
	if c.IncludeImplicit != nil {
		includeImplicit = *c.IncludeImplicit
	}
	return wiz.ResolveOptions{
		MaxAttempts:      c.MaxAttempts,
		MaxCombinations:  c.MaxCombinations,
		IncludeImplicit:  includeImplicit,
		SystemDescriptor: sys,
		NamespaceHints:   hints,
		InitialEnviron:   c.Environ,
		History:          history,
	}, nil
}
