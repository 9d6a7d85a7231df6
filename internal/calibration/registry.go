package calibration

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// DefaultPresetName is the canonical calibration used when none is requested.
const DefaultPresetName = "w13"

//go:embed presets.yaml
var embeddedPresets []byte

type presetFile struct {
	Default string               `yaml:"default"`
	Presets map[string]yaml.Node `yaml:"presets"`
}

// Registry holds named presets. It is configured at start-up and read-only
// once shared.
type Registry struct {
	presets     map[string]Preset
	defaultName string
}

// LoadDefaults returns the registry of built-in presets
func LoadDefaults() (*Registry, error) {
	r := &Registry{presets: make(map[string]Preset), defaultName: DefaultPresetName}
	if err := r.merge(embeddedPresets); err != nil {
		return nil, fmt.Errorf("failed to load built-in presets: %w", err)
	}
	return r, nil
}

// MustLoadDefaults is LoadDefaults for process start-up and tests
func MustLoadDefaults() *Registry {
	r, err := LoadDefaults()
	if err != nil {
		panic(err)
	}
	return r
}

// MergeFile adds or replaces presets from an operator-supplied YAML file.
// Presets in the file may extend built-in ones.
func (r *Registry) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read calibration file %s: %w", path, err)
	}
	if err := r.merge(raw); err != nil {
		return fmt.Errorf("calibration file %s: %w", path, err)
	}
	return nil
}

// Parse builds a registry from YAML alone, without the built-in presets
func Parse(data []byte) (*Registry, error) {
	r := &Registry{presets: make(map[string]Preset)}
	if err := r.merge(data); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) merge(data []byte) error {
	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("bad YAML: %v: %w", err, utils.ErrConfiguration)
	}

	resolved := make(map[string]Preset, len(doc.Presets))
	for name := range doc.Presets {
		if _, err := r.resolve(name, doc.Presets, resolved, map[string]bool{}); err != nil {
			return err
		}
	}

	for name, p := range resolved {
		r.presets[name] = p
	}
	if doc.Default != "" {
		r.defaultName = doc.Default
	}
	if _, ok := r.presets[r.defaultName]; !ok {
		return fmt.Errorf("default preset %q is not defined: %w", r.defaultName, utils.ErrConfiguration)
	}
	return nil
}

func (r *Registry) resolve(name string, nodes map[string]yaml.Node, resolved map[string]Preset, visiting map[string]bool) (Preset, error) {
	if p, ok := resolved[name]; ok {
		return p, nil
	}
	node, ok := nodes[name]
	if !ok {
		// Parent lives in an earlier merge.
		if p, ok := r.presets[name]; ok {
			return p, nil
		}
		return Preset{}, fmt.Errorf("preset %q is not defined: %w", name, utils.ErrConfiguration)
	}
	if visiting[name] {
		return Preset{}, fmt.Errorf("preset %q extends itself: %w", name, utils.ErrConfiguration)
	}
	visiting[name] = true

	var head struct {
		Extends string `yaml:"extends"`
	}
	if err := node.Decode(&head); err != nil {
		return Preset{}, fmt.Errorf("preset %q: %v: %w", name, err, utils.ErrConfiguration)
	}

	var p Preset
	if head.Extends != "" {
		parent, err := r.resolve(head.Extends, nodes, resolved, visiting)
		if err != nil {
			return Preset{}, err
		}
		p = parent
	}
	if err := node.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("preset %q: %v: %w", name, err, utils.ErrConfiguration)
	}
	p.Name = name
	p.Extends = ""

	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	resolved[name] = p
	return p, nil
}

// Get returns the named preset; an empty name selects the default
func (r *Registry) Get(name string) (Preset, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown calibration preset %q: %w", name, utils.ErrConfiguration)
	}
	return p, nil
}

// Default returns the canonical preset
func (r *Registry) Default() Preset {
	return r.presets[r.defaultName]
}

// SetDefault changes which preset an empty name selects
func (r *Registry) SetDefault(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := r.presets[name]; !ok {
		return fmt.Errorf("unknown calibration preset %q: %w", name, utils.ErrConfiguration)
	}
	r.defaultName = name
	return nil
}

func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names returns every preset name in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
