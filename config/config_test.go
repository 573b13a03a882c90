package config

import (
	"strings"
	"testing"
)

func parse(b []byte) (*Config, error) {
	cfg := NewConfig("qudi.cfg")
	_, err := cfg.LoadBytes(b)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

var tutorialConfig = []byte(`
global:
  server_address: 127.0.0.1:8340
  identifier: lab-qudi

hardware:
  rng:
    module.Class: hardware.rng.RNG
    mean: 42.0
    noise: 0.1

logic:
  rnglogic:
    module.Class: logic.rnglogic.RNGLogic
    autoactivate: true
    connect:
      rng: rng
`)

func TestLoadModules(t *testing.T) {
	cfg, err := parse(tutorialConfig)
	if err != nil {
		t.Fatalf("Fail to parse configuration: %v", err)
	}
	if cfg.Module("rng") == nil || cfg.Module("rnglogic") == nil || cfg.Module("laser") != nil {
		t.Error("Fail to load the declared modules")
	}
	d := cfg.Module("rng")
	if d.Base != BaseHardware || d.Class != "hardware.rng.RNG" || d.IsRemote() {
		t.Error("Fail to parse the rng hardware descriptor")
	}
	if cfg.Module("rnglogic").Connect["rng"] != "rng" {
		t.Error("Fail to parse the connect mapping")
	}
}

func TestGlobalOptions(t *testing.T) {
	cfg, _ := parse(tutorialConfig)
	if cfg.Global.GetString("server_address", "") != "127.0.0.1:8340" {
		t.Error("Fail to get global string option")
	}
	if cfg.Global.GetString("identifier", "qudi") != "lab-qudi" {
		t.Error("Fail to get global identifier")
	}
}

func TestOptionAccessors(t *testing.T) {
	cfg, _ := parse([]byte(`
hardware:
  counter:
    module.Class: hardware.counter.Card
    edge_rate: 100000
    clock_frequency: 100.5
    simulate: true
    counter_channels:
      - Dev1/ctr0
      - Dev1/ctr1
`))
	d := cfg.Module("counter")
	if d.GetInt("edge_rate", 0) != 100000 {
		t.Error("Fail to get integer option")
	}
	if d.GetFloat("clock_frequency", 0) != 100.5 {
		t.Error("Fail to get float option")
	}
	if !d.GetBool("simulate", false) {
		t.Error("Fail to get bool option")
	}
	chans := d.GetStringArray("counter_channels")
	if len(chans) != 2 || chans[0] != "Dev1/ctr0" || chans[1] != "Dev1/ctr1" {
		t.Error("Fail to get string array option")
	}
	if d.GetInt("missing", 7) != 7 || d.GetString("missing", "x") != "x" {
		t.Error("Fail to fall back to default values")
	}
}

func TestActivationOrder(t *testing.T) {
	cfg, err := parse([]byte(`
hardware:
  rng:
    module.Class: hardware.rng.RNG

logic:
  rnglogic:
    module.Class: logic.rnglogic.RNGLogic
    connect:
      rng: rng

gui:
  rnggui:
    module.Class: gui.rng.RNGGui
    connect:
      rnglogic: rnglogic
`))
	if err != nil {
		t.Fatalf("Fail to parse configuration: %v", err)
	}
	names := cfg.ModuleNames()
	if len(names) != 3 || names[0] != "rng" || names[1] != "rnglogic" || names[2] != "rnggui" {
		t.Errorf("expect dependency-first activation order, but got %v", names)
	}
}

func TestDanglingConnect(t *testing.T) {
	_, err := parse([]byte(`
logic:
  rnglogic:
    module.Class: logic.rnglogic.RNGLogic
    connect:
      rng: missing_rng
`))
	if err == nil || !strings.Contains(err.Error(), "undeclared module") {
		t.Errorf("expect dangling connect error, but got %v", err)
	}
}

func TestConnectCycle(t *testing.T) {
	_, err := parse([]byte(`
logic:
  a:
    module.Class: logic.a.A
    connect:
      other: b
  b:
    module.Class: logic.b.B
    connect:
      other: a
`))
	if err == nil || !strings.Contains(err.Error(), "cyclic connect") {
		t.Errorf("expect cycle error, but got %v", err)
	}
}

func TestClassAndRemoteExclusive(t *testing.T) {
	_, err := parse([]byte(`
hardware:
  rng:
    module.Class: hardware.rng.RNG
    remote: xmlrpc://lab-pc:8340/rng
`))
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("expect mutually exclusive error, but got %v", err)
	}
}

func TestRemoteModule(t *testing.T) {
	cfg, err := parse([]byte(`
hardware:
  remoterng:
    remote: xmlrpc://lab-pc:8340/rng
`))
	if err != nil {
		t.Fatalf("Fail to parse remote module: %v", err)
	}
	if !cfg.Module("remoterng").IsRemote() {
		t.Error("Fail to mark the module as remote")
	}
}

func TestBadRemoteURL(t *testing.T) {
	_, err := parse([]byte(`
hardware:
  remoterng:
    remote: rpyc://lab-pc:8340/rng
`))
	if err == nil || !strings.Contains(err.Error(), "unsupported remote scheme") {
		t.Errorf("expect unsupported scheme error, but got %v", err)
	}
}

func TestDuplicateModuleName(t *testing.T) {
	_, err := parse([]byte(`
hardware:
  rng:
    module.Class: hardware.rng.RNG

logic:
  rng:
    module.Class: logic.rnglogic.RNGLogic
`))
	if err == nil || !strings.Contains(err.Error(), "duplicate module name") {
		t.Errorf("expect duplicate name error, but got %v", err)
	}
}

func TestDependents(t *testing.T) {
	cfg, _ := parse(tutorialConfig)
	deps := cfg.Dependents("rng")
	if len(deps) != 1 || deps[0] != "rnglogic" {
		t.Errorf("expect rnglogic to depend on rng, but got %v", deps)
	}
}
