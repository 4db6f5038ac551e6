package wiz

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// PackageSummary is the externally-visible record for one resolved
// package, as carried on Context.Packages and round-tripped through
// WIZ_CONTEXT.
type PackageSummary struct {
	QualifiedIdentifier string `json:"qualified_identifier"`
	Version             string `json:"version"`
	VariantID           string `json:"variant_id,omitempty"`
	DefinitionPath      string `json:"definition_path"`
	RegistryPath        string `json:"registry_path"`
}

// Context is the output of a successful resolution: an ordered package
// list plus the merged environ and command maps, and the registry
// provenance the packages were drawn from.
type Context struct {
	Packages   []PackageSummary  `json:"packages"`
	Environ    map[string]string `json:"environ"`
	Command    map[string]string `json:"command"`
	Registries []string          `json:"registries"`
	Warnings   []string          `json:"-"`
}

// wizContextPayload is the smaller snapshot base64-encoded into the
// WIZ_CONTEXT environment variable: just enough to reconstitute which
// packages were chosen without rerunning the resolver.
type wizContextPayload struct {
	Registries []string `json:"registries"`
	PackageIDs []string `json:"package_ids"`
}

// encodeWizContext renders the WIZ_CONTEXT value for a resolved package
// list.
func encodeWizContext(registries []string, packageIDs []string) (string, error) {
	payload := wizContextPayload{Registries: registries, PackageIDs: packageIDs}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeWizContext reverses encodeWizContext for a WIZ_CONTEXT value read
// back out of the environment by an unrelated process, such as `wiz
// context decode`.
func DecodeWizContext(encoded string) (registries []string, packageIDs []string, err error) {
	return decodeWizContext(encoded)
}

// decodeWizContext reverses encodeWizContext.
func decodeWizContext(encoded string) (registries []string, packageIDs []string, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed WIZ_CONTEXT: %w", err)
	}
	var payload wizContextPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("malformed WIZ_CONTEXT: %w", err)
	}
	return payload.Registries, payload.PackageIDs, nil
}

// buildContext folds an ordered package list into a Context: environ and
// command maps are folded package by package, later packages overriding
// earlier ones key for key, with single-pass (non-fixpoint) ${NAME}
// substitution applied to each environ value as it is folded in.
func buildContext(packages []resolvedPackage, initialEnviron map[string]string) *Context {
	ctx := &Context{Environ: map[string]string{}, Command: map[string]string{}}
	for k, v := range initialEnviron {
		ctx.Environ[k] = v
	}

	registrySeen := map[string]bool{}
	var registries []string

	for _, rp := range packages {
		summary := PackageSummary{
			QualifiedIdentifier: rp.pkg.QualifiedIdentifier,
			Version:             rp.pkg.Version.String(),
			VariantID:           rp.pkg.VariantID,
			DefinitionPath:      rp.pkg.SourceDefinition.SourceFilePath,
			RegistryPath:        rp.registryPath,
		}
		ctx.Packages = append(ctx.Packages, summary)

		if rp.registryPath != "" && !registrySeen[rp.registryPath] {
			registrySeen[rp.registryPath] = true
			registries = append(registries, rp.registryPath)
		}

		for _, k := range rp.pkg.Environ.Keys() {
			v, _ := rp.pkg.Environ.Get(k)
			substituted, unresolved := substituteOnce(v, k, ctx.Environ)
			for _, u := range unresolved {
				ctx.Warnings = append(ctx.Warnings, fmt.Sprintf("unresolved reference ${%s} in %s's %s", u, rp.pkg.QualifiedIdentifier, k))
			}
			ctx.Environ[k] = substituted
		}
		for k, v := range rp.pkg.Command {
			ctx.Command[k] = v
		}
	}

	ctx.Registries = registries

	ids := make([]string, len(ctx.Packages))
	for i, p := range ctx.Packages {
		ids[i] = p.QualifiedIdentifier
	}
	encoded, err := encodeWizContext(registries, ids)
	if err == nil {
		ctx.Environ["WIZ_CONTEXT"] = encoded
	}

	return ctx
}

// substituteOnce performs a single pass over value, replacing every
// "${NAME}" reference with the current value of NAME in env (where a
// reference to selfKey resolves to env's *prior* value of selfKey, to
// support PATH-style augmentation). References to names absent from env
// are left as literal text and reported back as unresolved; the
// substitution explicitly does not iterate to a fixed point.
func substituteOnce(value, selfKey string, env map[string]string) (string, []string) {
	var b strings.Builder
	var unresolved []string
	i := 0
	for i < len(value) {
		if value[i] == '$' && i+1 < len(value) && value[i+1] == '{' {
			end := strings.IndexByte(value[i+2:], '}')
			if end >= 0 {
				name := value[i+2 : i+2+end]
				if v, ok := env[name]; ok {
					b.WriteString(v)
				} else {
					unresolved = append(unresolved, name)
					b.WriteString("${" + name + "}")
				}
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(value[i])
		i++
	}
	return b.String(), unresolved
}
