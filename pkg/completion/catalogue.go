// Package completion answers cursor-position queries against the unified
// tree using the external catalogue of known state modules.
package completion

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Param is one known parameter of a state function.
type Param struct {
	Name string `yaml:"name"`
	Docs string `yaml:"docs"`
}

// StateFunction describes one callable like "managed" under "file".
type StateFunction struct {
	Docs   string  `yaml:"docs"`
	Params []Param `yaml:"params"`
}

// StateModule describes one state module and its functions.
type StateModule struct {
	Docs      string                    `yaml:"docs"`
	Functions map[string]*StateFunction `yaml:"functions"`
}

type catalogueFile struct {
	Modules   map[string]*StateModule `yaml:"modules"`
	Variables []string                `yaml:"variables"`
}

// Catalogue is the process-wide lookup table of state module names, their
// function parameter schemas and the symbols available inside templating
// expressions. It is loaded once at startup and never mutated; sharing it
// across documents needs no locking.
type Catalogue struct {
	modules   map[string]*StateModule
	variables []string
}

// NewCatalogue builds a catalogue from already-assembled data, for callers
// that obtain the table from somewhere other than a file.
func NewCatalogue(modules map[string]*StateModule, variables []string) *Catalogue {
	return &Catalogue{modules: modules, variables: variables}
}

// LoadCatalogue reads the catalogue document from path.
func LoadCatalogue(fsys afero.Fs, path string) (*Catalogue, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading catalogue %s: %w", path, err)
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Errorf("parsing catalogue %s: %w", path, err)
	}
	return NewCatalogue(file.Modules, file.Variables), nil
}

// Module returns the module entry for name, if known.
func (c *Catalogue) Module(name string) (*StateModule, bool) {
	mod, ok := c.modules[name]
	return mod, ok
}

// Function resolves a dotted call name like "file.managed".
func (c *Catalogue) Function(callName string) (*StateFunction, bool) {
	module, function, found := strings.Cut(callName, ".")
	if !found {
		return nil, false
	}
	mod, ok := c.modules[module]
	if !ok {
		return nil, false
	}
	fn, ok := mod.Functions[function]
	return fn, ok
}

// ModuleNames returns every known module name, sorted.
func (c *Catalogue) ModuleNames() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionNames returns the function names of one module, sorted.
func (c *Catalogue) FunctionNames(module string) []string {
	mod, ok := c.modules[module]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mod.Functions))
	for name := range mod.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateSymbols returns the variable and object names available inside
// templating expressions.
func (c *Catalogue) TemplateSymbols() []string {
	return c.variables
}
