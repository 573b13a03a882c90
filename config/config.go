package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// Bases of the three module groups in the configuration file.
const (
	BaseHardware = "hardware"
	BaseLogic    = "logic"
	BaseGUI      = "gui"
)

// reserved descriptor keys interpreted by the loader itself, everything
// else is an option passed through to the module implementation
const (
	keyClass   = "module.Class"
	keyRemote  = "remote"
	keyConnect = "connect"
)

// Entry holds the free-form options of a configuration section
type Entry struct {
	keyValues map[string]interface{}
}

// NewEntry creates an empty configuration entry
func NewEntry() *Entry {
	return &Entry{keyValues: make(map[string]interface{})}
}

// HasOption checks if the key is present in the entry
func (e *Entry) HasOption(key string) bool {
	_, ok := e.keyValues[key]
	return ok
}

// Keys returns all the option names of the entry
func (e *Entry) Keys() []string {
	result := make([]string, 0, len(e.keyValues))
	for k := range e.keyValues {
		result = append(result, k)
	}
	return result
}

// GetString returns value of the key as a string
func (e *Entry) GetString(key string, defValue string) string {
	if v, ok := e.keyValues[key]; ok {
		switch t := v.(type) {
		case string:
			return t
		case int:
			return strconv.Itoa(t)
		case int64:
			return strconv.FormatInt(t, 10)
		case uint64:
			return strconv.FormatUint(t, 10)
		case float64:
			return strconv.FormatFloat(t, 'g', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return defValue
}

// GetInt gets value of the key as int
func (e *Entry) GetInt(key string, defValue int) int {
	if v, ok := e.keyValues[key]; ok {
		switch t := v.(type) {
		case int:
			return t
		case int64:
			return int(t)
		case uint64:
			return int(t)
		case float64:
			return int(t)
		case string:
			if i, err := strconv.Atoi(t); err == nil {
				return i
			}
		}
	}
	return defValue
}

// GetFloat gets value of the key as float64
func (e *Entry) GetFloat(key string, defValue float64) float64 {
	if v, ok := e.keyValues[key]; ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case int64:
			return float64(t)
		case uint64:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return defValue
}

// GetBool gets value of key as bool
func (e *Entry) GetBool(key string, defValue bool) bool {
	if v, ok := e.keyValues[key]; ok {
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	}
	return defValue
}

// GetStringArray gets value of the key as a string slice, accepting both a
// YAML sequence and a single scalar
func (e *Entry) GetStringArray(key string) []string {
	result := make([]string, 0)
	v, ok := e.keyValues[key]
	if !ok {
		return result
	}
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
	case []string:
		result = append(result, t...)
	case string:
		result = append(result, t)
	}
	return result
}

// Descriptor is a named module entry from one of the hardware, logic or gui
// groups. Either Class (a local implementation) or RemoteURL (a module
// hosted by another daemon) is set, never both.
type Descriptor struct {
	Name      string
	Base      string
	Class     string
	RemoteURL string
	Connect   map[string]string
	*Entry
}

// IsRemote returns true if this module lives in another process
func (d *Descriptor) IsRemote() bool {
	return d.RemoteURL != ""
}

// IsGUI returns true if this module belongs to the gui group
func (d *Descriptor) IsGUI() bool {
	return d.Base == BaseGUI
}

// GetFullName returns the base-qualified name of the module
func (d *Descriptor) GetFullName() string {
	return fmt.Sprintf("%s:%s", d.Base, d.Name)
}

// GetPriority returns module priority (as set in config) with default value of 999
func (d *Descriptor) GetPriority() int {
	return d.GetInt("priority", 999)
}

// IsAutoActivate returns true if the module should be activated at startup
func (d *Descriptor) IsAutoActivate() bool {
	return d.GetBool("autoactivate", false)
}

// Config memory representation of the qudi configuration file
type Config struct {
	configFile string

	// Global options of the daemon itself
	Global *Entry

	// mapping between the module name and its descriptor
	modules map[string]*Descriptor

	// module names in activation order (dependencies first)
	order []string
}

type rawConfig struct {
	Global   map[string]interface{}            `yaml:"global"`
	Hardware map[string]map[string]interface{} `yaml:"hardware"`
	Logic    map[string]map[string]interface{} `yaml:"logic"`
	GUI      map[string]map[string]interface{} `yaml:"gui"`
}

// NewConfig creates Config object
func NewConfig(configFile string) *Config {
	return &Config{
		configFile: configFile,
		Global:     NewEntry(),
		modules:    make(map[string]*Descriptor),
	}
}

// GetConfigFileDir returns directory of the configuration file
func (c *Config) GetConfigFileDir() string {
	return filepath.Dir(c.configFile)
}

// Load reads the configuration file and returns the loaded module names in
// activation order. All validation problems of one load are collected and
// returned together.
func (c *Config) Load() ([]string, error) {
	log.WithFields(log.Fields{"file": c.configFile}).Info("load configuration from file")
	b, err := os.ReadFile(c.configFile)
	if err != nil {
		return nil, err
	}
	return c.LoadBytes(b)
}

// LoadBytes parses a configuration from memory, see Load
func (c *Config) LoadBytes(b []byte) ([]string, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}

	errs := &ErrList{}
	c.modules = make(map[string]*Descriptor)
	c.Global = NewEntry()
	for k, v := range raw.Global {
		c.Global.keyValues[k] = v
	}

	c.parseGroup(BaseHardware, raw.Hardware, errs)
	c.parseGroup(BaseLogic, raw.Logic, errs)
	c.parseGroup(BaseGUI, raw.GUI, errs)

	validate(c, errs)

	order, err := sortModules(c.Modules())
	if err != nil {
		errs.Add(err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	c.order = make([]string, 0, len(order))
	for _, d := range order {
		c.order = append(c.order, d.Name)
	}
	return append([]string(nil), c.order...), nil
}

func (c *Config) parseGroup(base string, group map[string]map[string]interface{}, errs *ErrList) {
	for name, section := range group {
		if prev, ok := c.modules[name]; ok {
			errs.Add(fmt.Errorf("duplicate module name %q in groups %s and %s", name, prev.Base, base))
			continue
		}
		d := &Descriptor{
			Name:    name,
			Base:    base,
			Connect: make(map[string]string),
			Entry:   NewEntry(),
		}
		for k, v := range section {
			switch k {
			case keyClass:
				if s, ok := v.(string); ok {
					d.Class = s
				} else {
					errs.Add(fmt.Errorf("module %q: %s must be a string", name, keyClass))
				}
			case keyRemote:
				if s, ok := v.(string); ok {
					d.RemoteURL = s
				} else {
					errs.Add(fmt.Errorf("module %q: remote must be a string", name))
				}
			case keyConnect:
				connects, ok := v.(map[string]interface{})
				if !ok {
					errs.Add(fmt.Errorf("module %q: connect must be a mapping", name))
					continue
				}
				for role, target := range connects {
					s, ok := target.(string)
					if !ok {
						errs.Add(fmt.Errorf("module %q: connect target for role %q must be a module name", name, role))
						continue
					}
					d.Connect[role] = s
				}
			default:
				d.keyValues[k] = v
			}
		}
		c.modules[name] = d
	}
}

// Module returns the module descriptor or nil
func (c *Config) Module(name string) *Descriptor {
	return c.modules[name]
}

// Modules returns all module descriptors in activation order. Descriptors
// not covered by the order (before the first successful Load) come last,
// sorted by priority.
func (c *Config) Modules() []*Descriptor {
	result := make([]*Descriptor, 0, len(c.modules))
	seen := make(map[string]bool)
	for _, name := range c.order {
		if d, ok := c.modules[name]; ok {
			result = append(result, d)
			seen[name] = true
		}
	}
	rest := make([]*Descriptor, 0)
	for name, d := range c.modules {
		if !seen[name] {
			rest = append(rest, d)
		}
	}
	sortByPriority(rest)
	return append(result, rest...)
}

// ModuleNames returns the names of all the loaded modules in activation order
func (c *Config) ModuleNames() []string {
	result := make([]string, 0, len(c.modules))
	for _, d := range c.Modules() {
		result = append(result, d.Name)
	}
	return result
}

// GetModules returns module descriptors of one base group, in activation order
func (c *Config) GetModules(base string) []*Descriptor {
	result := make([]*Descriptor, 0)
	for _, d := range c.Modules() {
		if d.Base == base {
			result = append(result, d)
		}
	}
	return result
}

// Dependents returns the names of modules whose connect mapping points at
// the given module
func (c *Config) Dependents(name string) []string {
	result := make([]string, 0)
	for _, d := range c.Modules() {
		for _, target := range d.Connect {
			if target == name {
				result = append(result, d.Name)
				break
			}
		}
	}
	return result
}

// RemoveModule removes a module descriptor by its name
func (c *Config) RemoveModule(name string) {
	delete(c.modules, name)
}
