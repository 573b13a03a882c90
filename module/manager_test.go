package module

import (
	"testing"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/registry"
	"github.com/stretchr/testify/assert"
)

type fakeInstrument struct {
	Base
	activated   int
	deactivated int
}

func (f *fakeInstrument) Activate() error {
	f.activated++
	return nil
}

func (f *fakeInstrument) Deactivate() error {
	f.deactivated++
	return nil
}

type fakeLogic struct {
	Base
	instrument *fakeInstrument
}

func (f *fakeLogic) Connect(role string, target interface{}) error {
	f.instrument = target.(*fakeInstrument)
	return nil
}

func (f *fakeLogic) Activate() error {
	return nil
}

func (f *fakeLogic) Deactivate() error {
	return nil
}

func newDescriptor(name string, base string, class string, connects map[string]string) *config.Descriptor {
	if connects == nil {
		connects = make(map[string]string)
	}
	return &config.Descriptor{Name: name, Base: base, Class: class, Connect: connects, Entry: config.NewEntry()}
}

func setupRegistry(t *testing.T) {
	t.Cleanup(registry.Clear)
	registry.Register("hardware.fake.Instrument", func(d *config.Descriptor) (interface{}, error) {
		return &fakeInstrument{Base: NewBase(d)}, nil
	})
	registry.Register("logic.fake.Logic", func(d *config.Descriptor) (interface{}, error) {
		return &fakeLogic{Base: NewBase(d)}, nil
	})
}

func TestCreateAndFind(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	_, err := mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	assert.Nil(t, err)
	assert.NotNil(t, mgr.Find("hw"))
	assert.Nil(t, mgr.Find("missing"))
}

func TestCreateUnknownClass(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	_, err := mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.unknown.X", nil))
	assert.NotNil(t, err)
}

func TestActivateWithDependencies(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("logic", config.BaseLogic, "logic.fake.Logic", map[string]string{"hw": "hw"}))
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))

	err := mgr.Activate("logic")
	assert.Nil(t, err)

	hw := mgr.Find("hw")
	assert.True(t, hw.IsActivated())
	assert.Equal(t, Idle, hw.State())

	lg := mgr.Find("logic").Instance().(*fakeLogic)
	if lg.instrument == nil {
		t.Fatal("connector was not injected")
	}
	assert.Equal(t, 1, hw.Instance().(*fakeInstrument).activated)

	// second activation is a no-op
	assert.Nil(t, mgr.Activate("logic"))
	assert.Equal(t, 1, hw.Instance().(*fakeInstrument).activated)
}

func TestDeactivateDependentsFirst(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	mgr.CreateModule(newDescriptor("logic", config.BaseLogic, "logic.fake.Logic", map[string]string{"hw": "hw"}))

	assert.Nil(t, mgr.Activate("logic"))
	assert.Nil(t, mgr.Deactivate("hw"))

	assert.False(t, mgr.Find("hw").IsActivated())
	assert.False(t, mgr.Find("logic").IsActivated())
	assert.Equal(t, Deactivated, mgr.Find("logic").State())
}

func TestLockedModuleRefusesDeactivation(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	assert.Nil(t, mgr.Activate("hw"))

	hw := mgr.Find("hw").Instance().(*fakeInstrument)
	hw.SetState(Locked)

	err := mgr.Deactivate("hw")
	assert.NotNil(t, err)
	assert.True(t, mgr.Find("hw").IsActivated())

	hw.SetState(Idle)
	assert.Nil(t, mgr.Deactivate("hw"))
}

func TestGuiModuleNotInstantiated(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	m, err := mgr.CreateModule(newDescriptor("rnggui", config.BaseGUI, "gui.rng.RNGGui", nil))
	assert.Nil(t, err)
	assert.Nil(t, m.Instance())
	assert.Equal(t, Deactivated, m.State())

	err = mgr.Activate("rnggui")
	assert.NotNil(t, err)
}

func TestRemove(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	m := mgr.Remove("hw")
	assert.NotNil(t, m, "Failed to remove module")
	m = mgr.Remove("hw")
	assert.Nil(t, m, "Unexpected value")
}

func TestDeactivateAllReverseOrder(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	mgr.CreateModule(newDescriptor("logic", config.BaseLogic, "logic.fake.Logic", map[string]string{"hw": "hw"}))

	mgr.ActivateAll()
	assert.True(t, mgr.Find("logic").IsActivated())

	mgr.DeactivateAll()
	assert.False(t, mgr.Find("hw").IsActivated())
	assert.False(t, mgr.Find("logic").IsActivated())
	assert.Equal(t, 1, mgr.Find("hw").Instance().(*fakeInstrument).deactivated)
}

func TestActivateAutoStart(t *testing.T) {
	setupRegistry(t)
	mgr := NewManager()
	mgr.CreateModule(newDescriptor("hw", config.BaseHardware, "hardware.fake.Instrument", nil))
	mgr.CreateModule(newDescriptor("logic", config.BaseLogic, "logic.fake.Logic", map[string]string{"hw": "hw"}))

	mgr.ActivateAutoStart()
	// no autoactivate flags set, nothing activated
	assert.False(t, mgr.Find("hw").IsActivated())
}
