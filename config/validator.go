package config

import (
	"fmt"

	"github.com/mvchalupnik/qudi/remote"
)

// validate checks the cross-reference invariants of a loaded configuration:
// every module names a class or a remote endpoint (never both), remote
// references parse, and every connect target resolves to a declared module.
func validate(c *Config, errs *ErrList) {
	for _, d := range c.Modules() {
		if d.Class == "" && d.RemoteURL == "" {
			errs.Add(fmt.Errorf("module %q: neither %s nor remote is set", d.Name, keyClass))
		}
		if d.Class != "" && d.RemoteURL != "" {
			errs.Add(fmt.Errorf("module %q: %s and remote are mutually exclusive", d.Name, keyClass))
		}
		if d.RemoteURL != "" {
			if _, err := remote.ParseURL(d.RemoteURL); err != nil {
				errs.Add(fmt.Errorf("module %q: %w", d.Name, err))
			}
		}
		for role, target := range d.Connect {
			if target == d.Name {
				errs.Add(fmt.Errorf("module %q: connect role %q points at the module itself", d.Name, role))
				continue
			}
			if c.Module(target) == nil {
				errs.Add(fmt.Errorf("module %q: connect role %q points at undeclared module %q", d.Name, role, target))
			}
		}
	}
}
