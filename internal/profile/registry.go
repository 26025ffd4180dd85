// Package profile manages operator-editable action weight profiles. The
// profile file is watched at runtime so weights can be retuned without a
// restart.
package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tickbot/internal/agent"
	"tickbot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Profile is a named weight preset for the action catalog.
type Profile struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Weights     map[string]float64 `yaml:"weights"`
	Disabled    []string           `yaml:"disabled"`
}

// FileConfig maps the profiles file.
type FileConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Snapshot is an immutable view of the loaded profile set.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// ChangeListener fires after every successful reload.
type ChangeListener func(Snapshot)

// Registry loads the profile file and watches it for edits. A reload that
// fails validation keeps the previous snapshot.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the profile file and starts watching it.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("profile reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Subscribe registers a listener for future reloads.
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot returns the current profile set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile returns the profile with the given name.
func (r *Registry) Profile(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(name)]
	return p, ok
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		norm, err := normalizeProfile(name, p)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[norm.Name] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("Profile registry loaded %d profiles from %s", len(profiles), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("profile listener")
			cb(snap)
		}(fn)
	}
}

func normalizeProfile(name string, p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = strings.TrimSpace(name)
	}
	p.Description = strings.TrimSpace(p.Description)
	for action := range p.Weights {
		if !knownAction(action) {
			return Profile{}, fmt.Errorf("unknown action in weights: %q", action)
		}
	}
	for _, action := range p.Disabled {
		if !knownAction(action) {
			return Profile{}, fmt.Errorf("unknown action in disabled: %q", action)
		}
	}
	return p, nil
}

func knownAction(name string) bool {
	at := agent.ActionType(strings.TrimSpace(name))
	for _, a := range agent.AllActions {
		if a == at {
			return true
		}
	}
	return false
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for name, p := range src.Profiles {
		dst.Profiles[name] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func readProfileFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read profile config failed: %w", err)
	}
	if err := validateShape(raw); err != nil {
		return FileConfig{}, err
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse profile config failed: %w", err)
	}
	return cfg, nil
}

// fileSchema constrains the document shape before typed decoding so a bad
// edit (weight as string, disabled as map) fails with a pointed error
// instead of silently zeroing fields.
const fileSchema = `{
  "type": "object",
  "required": ["profiles"],
  "properties": {
    "profiles": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "weights": {
            "type": "object",
            "additionalProperties": {"type": "number", "minimum": 0}
          },
          "disabled": {
            "type": "array",
            "items": {"type": "string"}
          }
        },
        "additionalProperties": false
      }
    }
  }
}`

var compileOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profiles.json", strings.NewReader(fileSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("profiles.json")
})

func validateShape(raw []byte) error {
	schema, err := compileOnce()
	if err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse profile config failed: %w", err)
	}
	if err := schema.Validate(normalizeYAML(doc)); err != nil {
		return fmt.Errorf("profile config schema: %w", err)
	}
	return nil
}

// normalizeYAML converts yaml.v3 trees into the json-shaped values the
// schema validator expects (string keys, float64 numbers).
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAML(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAML(child)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}

// Apply converts the profile into catalog weight and enablement maps.
func (p Profile) Apply() (map[agent.ActionType]float64, map[agent.ActionType]bool) {
	weights := make(map[agent.ActionType]float64, len(p.Weights))
	for action, w := range p.Weights {
		weights[agent.ActionType(strings.TrimSpace(action))] = w
	}
	enabled := make(map[agent.ActionType]bool, len(agent.AllActions))
	for _, a := range agent.AllActions {
		enabled[a] = true
	}
	for _, action := range p.Disabled {
		enabled[agent.ActionType(strings.TrimSpace(action))] = false
	}
	return weights, enabled
}
