package registry

import (
	"embed"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

//go:embed builtin.yaml
var builtinFS embed.FS

// builtinCatalog is the YAML-decoded shape of builtin.yaml: a flat list of
// tool entries under a top-level "tools" key, matching the repo-override
// format read from .huskycat/tools.yaml.
type builtinCatalog struct {
	Tools []Tool `yaml:"tools"`
}

// LoadBuiltin decodes the embedded default tool catalog.
func LoadBuiltin() ([]Tool, error) {
	raw, err := builtinFS.ReadFile("builtin.yaml")
	if err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindConfiguration, err, "read embedded builtin catalog")
	}
	return decodeCatalog(raw)
}

// LoadOverride decodes a repo-local .huskycat/tools.yaml override file. Its
// entries are merged on top of the builtin catalog by MergeCatalogs: a tool
// name present in both replaces the builtin entry wholesale.
func LoadOverride(raw []byte) ([]Tool, error) {
	return decodeCatalog(raw)
}

func decodeCatalog(raw []byte) ([]Tool, error) {
	var cat builtinCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindConfiguration, err, "parse tool catalog")
	}
	return cat.Tools, nil
}

// MergeCatalogs overlays override entries onto base by tool name, returning
// a combined, de-duplicated list. Order is: base tools in their original
// order (an overridden tool keeps its base position but takes the override
// entry), then tools found only in override, appended in override order.
func MergeCatalogs(base, override []Tool) []Tool {
	overridden := make(map[string]Tool, len(override))
	for _, t := range override {
		overridden[t.Name] = t
	}

	merged := make([]Tool, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		if ov, ok := overridden[t.Name]; ok {
			merged = append(merged, ov)
		} else {
			merged = append(merged, t)
		}
		seen[t.Name] = true
	}
	for _, t := range override {
		if !seen[t.Name] {
			merged = append(merged, t)
		}
	}
	return merged
}

// Timeout returns the tool's configured timeout, falling back to def when
// unset.
func Timeout(t Tool, def time.Duration) time.Duration {
	if t.TimeoutSeconds <= 0 {
		return def
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}
