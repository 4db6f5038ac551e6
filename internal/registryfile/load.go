// Package registryfile is the reference definition-file discovery
// collaborator: it walks a registry directory tree for *.json definition
// files and decodes them into wiz.DefinitionRecord values. The resolver
// core never imports this package directly — it is an external
// collaborator per the core's scope, wired in here for cmd/wiz.
package registryfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/themill/wiz"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// rawSystem mirrors the JSON "system" object.
type rawSystem struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	OS       string `json:"os"`
}

// rawVariant mirrors one entry of the JSON "variants" array.
type rawVariant struct {
	Identifier      string            `json:"identifier"`
	Environ         json.RawMessage   `json:"environ"`
	Command         map[string]string `json:"command"`
	Requirements    []string          `json:"requirements"`
	InstallLocation string            `json:"install-location"`
}

// rawDefinition mirrors the top-level JSON definition file shape from §6.
type rawDefinition struct {
	Identifier      string            `json:"identifier"`
	Namespace       string            `json:"namespace"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	Disabled        bool              `json:"disabled"`
	AutoUse         bool              `json:"auto-use"`
	InstallLocation string            `json:"install-location"`
	InstallRoot     string            `json:"install-root"`
	System          *rawSystem        `json:"system"`
	Command         map[string]string `json:"command"`
	Environ         json.RawMessage   `json:"environ"`
	Requirements    []string          `json:"requirements"`
	Conditions      []string          `json:"conditions"`
	Variants        []rawVariant      `json:"variants"`
}

var topLevelKeys = map[string]bool{
	"identifier": true, "namespace": true, "version": true, "description": true,
	"disabled": true, "auto-use": true, "install-location": true, "install-root": true,
	"system": true, "command": true, "environ": true, "requirements": true,
	"conditions": true, "variants": true,
}

// Load walks root for *.json definition files and decodes each into a
// wiz.DefinitionRecord tagged with root as its registry path.
func Load(root string) ([]wiz.DefinitionRecord, error) {
	var records []wiz.DefinitionRecord

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "opening definition file %s", path)
			}
			defer f.Close()

			def, err := decodeDefinition(f, path)
			if err != nil {
				return errors.Wrapf(err, "decoding definition file %s", path)
			}
			def.SourceRegistryPath = root
			records = append(records, wiz.DefinitionRecord{Definition: def, RegistryPath: root})
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking registry %s", root)
	}
	return records, nil
}

// decodeDefinition validates and converts one definition file's JSON into
// a *wiz.Definition, rejecting unknown top-level keys and malformed
// identifiers per §6.
func decodeDefinition(r io.Reader, path string) (*wiz.Definition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err := rejectUnknownKeys(raw); err != nil {
		return nil, err
	}

	var rd rawDefinition
	if err := json.Unmarshal(raw, &rd); err != nil {
		return nil, err
	}

	if rd.Identifier == "" || !identifierPattern.MatchString(rd.Identifier) {
		return nil, fmt.Errorf("identifier %q is not a non-empty [A-Za-z0-9_.-]+ string", rd.Identifier)
	}

	def := &wiz.Definition{
		Identifier:         rd.Identifier,
		Namespace:          rd.Namespace,
		Description:        rd.Description,
		Disabled:           rd.Disabled,
		AutoUse:            rd.AutoUse,
		InstallLocation:    rd.InstallLocation,
		InstallRoot:        rd.InstallRoot,
		Command:            rd.Command,
		SourceRegistryPath: filepath.Dir(path),
		SourceFilePath:     path,
	}

	if rd.Version != "" {
		v, err := wiz.ParseVersion(rd.Version)
		if err != nil {
			return nil, err
		}
		def.Version = v
		def.HasVersion = true
	}

	if rd.System != nil {
		sc := &wiz.SystemConstraint{Platform: rd.System.Platform, Arch: rd.System.Arch}
		if rd.System.OS != "" {
			set, err := wiz.ParseSpecifierSet(rd.System.OS)
			if err != nil {
				return nil, err
			}
			sc.OS = set
		}
		def.System = sc
	}

	def.Environ, err = decodeOrderedMap(rd.Environ)
	if err != nil {
		return nil, err
	}

	def.Requirements, err = parseRequirementStrings(rd.Requirements)
	if err != nil {
		return nil, err
	}
	def.Conditions, err = parseRequirementStrings(rd.Conditions)
	if err != nil {
		return nil, err
	}

	for _, rv := range rd.Variants {
		vd := wiz.VariantDecl{Identifier: rv.Identifier, Command: rv.Command, InstallLocation: rv.InstallLocation}
		vd.Environ, err = decodeOrderedMap(rv.Environ)
		if err != nil {
			return nil, err
		}
		vd.Requirements, err = parseRequirementStrings(rv.Requirements)
		if err != nil {
			return nil, err
		}
		def.Variants = append(def.Variants, vd)
	}

	return def, nil
}

func parseRequirementStrings(ss []string) ([]wiz.Requirement, error) {
	out := make([]wiz.Requirement, 0, len(ss))
	for _, s := range ss {
		r, err := wiz.ParseRequirement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// decodeOrderedMap decodes a JSON object preserving key declaration order,
// since Go's map iteration order is randomized and environ substitution
// folding is order-sensitive.
func decodeOrderedMap(raw json.RawMessage) (wiz.OrderedMap, error) {
	if len(raw) == 0 {
		return wiz.OrderedMap{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return wiz.OrderedMap{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return wiz.OrderedMap{}, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	values := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return wiz.OrderedMap{}, err
		}
		key := keyTok.(string)

		var val string
		if err := dec.Decode(&val); err != nil {
			return wiz.OrderedMap{}, err
		}
		keys = append(keys, key)
		values[key] = val
	}
	return wiz.NewOrderedMap(keys, values), nil
}

func rejectUnknownKeys(raw []byte) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	for k := range generic {
		if !topLevelKeys[k] {
			return fmt.Errorf("unknown top-level key %q", k)
		}
	}
	return nil
}
