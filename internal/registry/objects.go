package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind names one of the three object tables of a module.
type Kind string

const (
	KindClass    Kind = "classes"
	KindFunction Kind = "functions"
	KindImport   Kind = "imports"
)

// Kinds lists the tables in the order they are serialised.
var Kinds = []Kind{KindClass, KindFunction, KindImport}

// ModuleObjects maps paths local to a module to absolute paths.
type ModuleObjects struct {
	Classes   *orderedmap.OrderedMap[string, string] `json:"classes" yaml:"classes"`
	Functions *orderedmap.OrderedMap[string, string] `json:"functions" yaml:"functions"`
	Imports   *orderedmap.OrderedMap[string, string] `json:"imports" yaml:"imports"`
}

func newModuleObjects() *ModuleObjects {
	return &ModuleObjects{
		Classes:   orderedmap.New[string, string](),
		Functions: orderedmap.New[string, string](),
		Imports:   orderedmap.New[string, string](),
	}
}

// Table returns the map for kind.
func (m *ModuleObjects) Table(kind Kind) *orderedmap.OrderedMap[string, string] {
	switch kind {
	case KindClass:
		return m.Classes
	case KindFunction:
		return m.Functions
	default:
		return m.Imports
	}
}

// Objects accumulates the objects of every module seen during a run, in
// the order modules were rendered.
type Objects struct {
	modules *orderedmap.OrderedMap[string, *ModuleObjects]
}

func NewObjects() *Objects {
	return &Objects{modules: orderedmap.New[string, *ModuleObjects]()}
}

// Add records every class, function and import of m. Rendering the same
// module again replaces its entry in place.
func (o *Objects) Add(m *ModuleRecord) {
	mo := newModuleObjects()
	for pair := m.Classes.Oldest(); pair != nil; pair = pair.Next() {
		mo.Classes.Set(localPath(m.Name, pair.Key), pair.Key)
	}
	for pair := m.Functions.Oldest(); pair != nil; pair = pair.Next() {
		mo.Functions.Set(localPath(m.Name, pair.Key), pair.Key)
	}
	for pair := m.Imports.Oldest(); pair != nil; pair = pair.Next() {
		mo.Imports.Set(localPath(m.Name, pair.Key), pair.Value.Resolve(m.Name, m.Package))
	}
	o.modules.Set(m.Name, mo)
}

// Ensure returns the tables of module, registering it empty if needed.
func (o *Objects) Ensure(module string) *ModuleObjects {
	mo, ok := o.modules.Get(module)
	if !ok {
		mo = newModuleObjects()
		o.modules.Set(module, mo)
	}
	return mo
}

// Put stores a single entry, creating the module if needed.
func (o *Objects) Put(module string, kind Kind, local, abs string) {
	o.Ensure(module).Table(kind).Set(local, abs)
}

// Each calls fn for every entry, modules first, then kinds in Kinds order.
func (o *Objects) Each(fn func(module string, kind Kind, local, abs string)) {
	for pair := o.modules.Oldest(); pair != nil; pair = pair.Next() {
		for _, kind := range Kinds {
			for entry := pair.Value.Table(kind).Oldest(); entry != nil; entry = entry.Next() {
				fn(pair.Key, kind, entry.Key, entry.Value)
			}
		}
	}
}

func (o *Objects) Module(name string) (*ModuleObjects, bool) {
	return o.modules.Get(name)
}

// Modules returns the module names in insertion order.
func (o *Objects) Modules() []string {
	names := make([]string, 0, o.modules.Len())
	for pair := o.modules.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (o *Objects) Len() int { return o.modules.Len() }

// IsLocal reports whether path is one of the accumulated modules or lives
// inside one of them.
func (o *Objects) IsLocal(path string) bool {
	for pair := o.modules.Oldest(); pair != nil; pair = pair.Next() {
		if path == pair.Key || strings.HasPrefix(path, pair.Key+".") {
			return true
		}
	}
	return false
}

func (o *Objects) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.modules)
}

func (o *Objects) UnmarshalJSON(data []byte) error {
	modules := orderedmap.New[string, *ModuleObjects]()
	if err := json.Unmarshal(data, modules); err != nil {
		return fmt.Errorf("decoding objects: %w", err)
	}
	for pair := modules.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			pair.Value = newModuleObjects()
			continue
		}
		for _, kind := range Kinds {
			if pair.Value.Table(kind) == nil {
				fillTable(pair.Value, kind)
			}
		}
	}
	o.modules = modules
	return nil
}

func (o *Objects) MarshalYAML() (interface{}, error) {
	return o.modules, nil
}

func fillTable(m *ModuleObjects, kind Kind) {
	switch kind {
	case KindClass:
		m.Classes = orderedmap.New[string, string]()
	case KindFunction:
		m.Functions = orderedmap.New[string, string]()
	default:
		m.Imports = orderedmap.New[string, string]()
	}
}

func localPath(module, path string) string {
	return strings.TrimPrefix(strings.TrimPrefix(path, module), ".")
}
