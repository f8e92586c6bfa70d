// Package kits holds the built-in design kits and validates kits against the
// signal catalog. A kit is design tokens only: fonts, light and dark colors,
// a type scale, component recipes and layout notes.
package kits

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"gopkg.in/yaml.v3"
)

// RequiredComponents are the recipes every kit must ship.
var RequiredComponents = []string{"button", "card", "input", "nav", "hero", "footer"}

// MaxFontSizes bounds the distinct sizes in a kit's type scale.
const MaxFontSizes = 8

type Fonts struct {
	Heading string `yaml:"heading" json:"heading"`
	Body    string `yaml:"body" json:"body"`
	Mono    string `yaml:"mono,omitempty" json:"mono,omitempty"`
}

type Colors struct {
	Light map[string]string `yaml:"light" json:"light"`
	Dark  map[string]string `yaml:"dark" json:"dark"`
}

// Recipe is how one component is built: its utility classes, optional CSS
// declarations and a sample of the copy it carries.
type Recipe struct {
	Classes string `yaml:"classes" json:"classes"`
	Style   string `yaml:"style,omitempty" json:"style,omitempty"`
	Sample  string `yaml:"sample,omitempty" json:"sample,omitempty"`
}

type Layout struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type Kit struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Fonts       Fonts             `yaml:"fonts" json:"fonts"`
	Colors      Colors            `yaml:"colors" json:"colors"`
	TypeScale   []string          `yaml:"typeScale" json:"typeScale"`
	Components  map[string]Recipe `yaml:"components" json:"components"`
	Layouts     []Layout          `yaml:"layouts,omitempty" json:"layouts,omitempty"`
}

// Clone returns a deep copy, so callers can edit a built-in kit safely.
func (k Kit) Clone() Kit {
	out := k
	out.Colors.Light = copyMap(k.Colors.Light)
	out.Colors.Dark = copyMap(k.Colors.Dark)
	out.TypeScale = append([]string(nil), k.TypeScale...)
	if k.Components != nil {
		out.Components = make(map[string]Recipe, len(k.Components))
		for name, r := range k.Components {
			out.Components[name] = r
		}
	}
	out.Layouts = append([]Layout(nil), k.Layouts...)
	return out
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UnknownKitError is returned when a kit name is not in the built-in table.
type UnknownKitError struct {
	Name      string
	Available []string
}

func (e *UnknownKitError) Error() string {
	return fmt.Sprintf("unknown kit %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

//go:embed kits.yaml
var builtinYAML []byte

type table struct {
	Kits []Kit `yaml:"kits"`
}

var (
	loadOnce sync.Once
	builtin  []Kit
	loadErr  error
)

func load() ([]Kit, error) {
	loadOnce.Do(func() {
		var t table
		if err := yaml.Unmarshal(builtinYAML, &t); err != nil {
			loadErr = fmt.Errorf("built-in kits: %w", err)
			return
		}
		sort.Slice(t.Kits, func(i, j int) bool { return t.Kits[i].Name < t.Kits[j].Name })
		builtin = t.Kits
	})
	return builtin, loadErr
}

// All returns copies of the built-in kits ordered by name.
func All() []Kit {
	ks, err := load()
	if err != nil {
		panic(err)
	}
	out := make([]Kit, 0, len(ks))
	for _, k := range ks {
		out = append(out, k.Clone())
	}
	return out
}

func Names() []string {
	ks, _ := load()
	names := make([]string, 0, len(ks))
	for _, k := range ks {
		names = append(names, k.Name)
	}
	return names
}

// Lookup finds a built-in kit by name, case-insensitively.
func Lookup(name string) (Kit, error) {
	ks, err := load()
	if err != nil {
		return Kit{}, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, k := range ks {
		if k.Name == want {
			return k.Clone(), nil
		}
	}
	return Kit{}, &UnknownKitError{Name: name, Available: Names()}
}

// Load reads a user kit from a YAML or JSON file.
func Load(path string) (Kit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Kit{}, err
	}
	var k Kit
	if err := yaml.Unmarshal(support.StripBOM(data), &k); err != nil {
		return Kit{}, fmt.Errorf("parse kit %s: %w", path, err)
	}
	if strings.TrimSpace(k.Name) == "" {
		return Kit{}, fmt.Errorf("kit %s: name is required", path)
	}
	return k, nil
}

// Resolve treats ref as a path when a file exists there and as a built-in
// kit name otherwise.
func Resolve(ref string) (Kit, error) {
	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		return Load(ref)
	}
	return Lookup(ref)
}
