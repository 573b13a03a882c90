package module

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/events"
	"github.com/mvchalupnik/qudi/registry"
	"github.com/mvchalupnik/qudi/remote"
	log "github.com/sirupsen/logrus"
)

type stateSetter interface {
	SetState(State)
}

// Managed couples a module descriptor with its constructed instance and the
// manager-side activation bookkeeping. For gui modules the instance is nil:
// the headless daemon validates them but never constructs widgets.
type Managed struct {
	descriptor *config.Descriptor
	instance   interface{}

	lock           sync.RWMutex
	activated      bool
	activationTime time.Time
	lastErr        error
}

// Descriptor returns the configuration descriptor of the module
func (m *Managed) Descriptor() *config.Descriptor {
	return m.descriptor
}

// Instance returns the local instance or the remote proxy of the module
func (m *Managed) Instance() interface{} {
	return m.instance
}

// GetName returns the configured module name
func (m *Managed) GetName() string {
	return m.descriptor.Name
}

// IsActivated returns true if the module was activated and not deactivated since
func (m *Managed) IsActivated() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.activated
}

// ActivationTime returns the time of the last successful activation
func (m *Managed) ActivationTime() time.Time {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.activationTime
}

// LastError returns the error of the last failed lifecycle transition
func (m *Managed) LastError() error {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.lastErr
}

// State derives the externally visible state of the module
func (m *Managed) State() State {
	if !m.IsActivated() {
		return Deactivated
	}
	if s, ok := m.instance.(interface{ State() State }); ok {
		return s.State()
	}
	return Idle
}

func (m *Managed) setActivated(activated bool) {
	m.lock.Lock()
	m.activated = activated
	if activated {
		m.activationTime = time.Now()
		m.lastErr = nil
	}
	m.lock.Unlock()
}

func (m *Managed) setLastError(err error) {
	m.lock.Lock()
	m.lastErr = err
	m.lock.Unlock()
}

// Manager owns all the modules of one loaded configuration and drives
// their lifecycle in connect-dependency order.
type Manager struct {
	lock    sync.Mutex
	modules map[string]*Managed
	order   []string

	remoteUser     string
	remotePassword string
	remoteTimeout  time.Duration
}

// NewManager creates an empty module Manager
func NewManager() *Manager {
	return &Manager{
		modules:       make(map[string]*Managed),
		order:         make([]string, 0),
		remoteTimeout: 10 * time.Second,
	}
}

// SetRemoteAuth sets the credentials used when connecting to remote daemons
func (mgr *Manager) SetRemoteAuth(user string, password string) {
	mgr.remoteUser = user
	mgr.remotePassword = password
}

// CreateModule constructs the instance for a descriptor and registers it,
// or returns the already registered module of the same name. Local classes
// come from the registry, remote descriptors get an XML-RPC proxy, gui
// descriptors stay uninstantiated.
func (mgr *Manager) CreateModule(d *config.Descriptor) (*Managed, error) {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()

	if m, ok := mgr.modules[d.Name]; ok {
		return m, nil
	}

	var instance interface{}
	switch {
	case d.IsGUI():
		log.WithFields(log.Fields{"module": d.Name}).Info("gui module declared, not instantiated in headless mode")
	case d.IsRemote():
		ref, err := remote.ParseURL(d.RemoteURL)
		if err != nil {
			return nil, err
		}
		instance = remote.NewProxy(ref, mgr.remoteUser, mgr.remotePassword, mgr.remoteTimeout)
		log.WithFields(log.Fields{"module": d.Name, "remote": ref.String()}).Info("create remote module proxy")
	default:
		var err error
		instance, err = registry.Create(d)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"module": d.Name, "class": d.Class}).Info("create module")
	}

	m := &Managed{descriptor: d, instance: instance}
	mgr.modules[d.Name] = m
	mgr.order = append(mgr.order, d.Name)
	return m, nil
}

// Find returns the managed module or nil if not found
func (mgr *Manager) Find(name string) *Managed {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	return mgr.modules[name]
}

// Remove drops the module from the manager and returns it, or nil
func (mgr *Manager) Remove(name string) *Managed {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	m := mgr.modules[name]
	delete(mgr.modules, name)
	for i, n := range mgr.order {
		if n == name {
			mgr.order = append(mgr.order[:i], mgr.order[i+1:]...)
			break
		}
	}
	if m != nil {
		log.WithFields(log.Fields{"module": name}).Info("remove module")
	}
	return m
}

// Clear drops all managed modules
func (mgr *Manager) Clear() {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	mgr.modules = make(map[string]*Managed)
	mgr.order = make([]string, 0)
}

// Names returns the managed module names in activation order
func (mgr *Manager) Names() []string {
	mgr.lock.Lock()
	defer mgr.lock.Unlock()
	return append([]string(nil), mgr.order...)
}

// ForEachModule visits the managed modules in activation order
func (mgr *Manager) ForEachModule(f func(m *Managed)) {
	for _, name := range mgr.Names() {
		if m := mgr.Find(name); m != nil {
			f(m)
		}
	}
}

// Activate activates the module, activating every module its connect
// mapping points at first and injecting the resolved dependencies.
func (mgr *Manager) Activate(name string) error {
	return mgr.activate(name, make(map[string]bool))
}

func (mgr *Manager) activate(name string, visiting map[string]bool) error {
	m := mgr.Find(name)
	if m == nil {
		return fmt.Errorf("no such module: %s", name)
	}
	if m.descriptor.IsGUI() {
		return fmt.Errorf("module %s belongs to the gui group and is not instantiated by the headless daemon", name)
	}
	if m.IsActivated() {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("cyclic connect references while activating %s", name)
	}
	visiting[name] = true

	// dependencies first
	for role, target := range m.descriptor.Connect {
		if err := mgr.activate(target, visiting); err != nil {
			err = fmt.Errorf("unable to activate dependency %q (role %q) of module %s: %w", target, role, name, err)
			m.setLastError(err)
			return err
		}
	}

	if c, ok := m.instance.(Connectable); ok {
		for role, target := range m.descriptor.Connect {
			dep := mgr.Find(target)
			if dep == nil {
				err := fmt.Errorf("connect target %q of module %s disappeared", target, name)
				m.setLastError(err)
				return err
			}
			if err := c.Connect(role, dep.Instance()); err != nil {
				err = fmt.Errorf("unable to connect role %q of module %s: %w", role, name, err)
				m.setLastError(err)
				return err
			}
		}
	}

	log.WithFields(log.Fields{"module": name}).Info("activate module")
	if a, ok := m.instance.(interface{ Activate() error }); ok {
		if err := a.Activate(); err != nil {
			m.setLastError(err)
			log.WithFields(log.Fields{"module": name, log.ErrorKey: err}).Error("fail to activate module")
			return err
		}
	}
	m.setActivated(true)
	if s, ok := m.instance.(stateSetter); ok {
		s.SetState(Idle)
	} else {
		events.Emit(events.CreateModuleStateEvent(name, m.descriptor.Base, Deactivated.String(), Idle.String()))
	}
	return nil
}

// Deactivate deactivates the module, deactivating every activated module
// that depends on it first. A Locked module refuses to deactivate.
func (mgr *Manager) Deactivate(name string) error {
	m := mgr.Find(name)
	if m == nil {
		return fmt.Errorf("no such module: %s", name)
	}
	if !m.IsActivated() {
		return nil
	}
	if m.State() == Locked {
		return fmt.Errorf("module %s is locked and cannot be deactivated", name)
	}

	// dependents first
	for _, other := range mgr.Names() {
		if other == name {
			continue
		}
		o := mgr.Find(other)
		if o == nil || !o.IsActivated() {
			continue
		}
		for _, target := range o.descriptor.Connect {
			if target == name {
				if err := mgr.Deactivate(other); err != nil {
					return fmt.Errorf("unable to deactivate dependent module %s: %w", other, err)
				}
				break
			}
		}
	}

	log.WithFields(log.Fields{"module": name}).Info("deactivate module")
	var err error
	if d, ok := m.instance.(interface{ Deactivate() error }); ok {
		err = d.Deactivate()
		if err != nil {
			m.setLastError(err)
			log.WithFields(log.Fields{"module": name, log.ErrorKey: err}).Error("error during module deactivation")
		}
	}
	m.setActivated(false)
	if s, ok := m.instance.(stateSetter); ok {
		s.SetState(Deactivated)
	} else {
		events.Emit(events.CreateModuleStateEvent(name, m.descriptor.Base, Idle.String(), Deactivated.String()))
	}
	return err
}

// ActivateAutoStart activates every module with autoactivate set
func (mgr *Manager) ActivateAutoStart() {
	mgr.ForEachModule(func(m *Managed) {
		if m.descriptor.IsAutoActivate() && !m.descriptor.IsGUI() {
			if err := mgr.Activate(m.GetName()); err != nil {
				log.WithFields(log.Fields{"module": m.GetName(), log.ErrorKey: err}).Error("fail to autoactivate module")
			}
		}
	})
}

// ActivateAll activates every non-gui module in activation order
func (mgr *Manager) ActivateAll() {
	mgr.ForEachModule(func(m *Managed) {
		if m.descriptor.IsGUI() {
			return
		}
		if err := mgr.Activate(m.GetName()); err != nil {
			log.WithFields(log.Fields{"module": m.GetName(), log.ErrorKey: err}).Error("fail to activate module")
		}
	})
}

// DeactivateAll deactivates every activated module, dependents before
// their dependencies
func (mgr *Manager) DeactivateAll() {
	names := mgr.Names()
	for i := len(names) - 1; i >= 0; i-- {
		m := mgr.Find(names[i])
		if m == nil || !m.IsActivated() {
			continue
		}
		if err := mgr.Deactivate(names[i]); err != nil {
			log.WithFields(log.Fields{"module": names[i], log.ErrorKey: err}).Error("fail to deactivate module")
		}
	}
}
