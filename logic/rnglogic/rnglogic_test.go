package rnglogic

import (
	"testing"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/hardware/rng"
	"github.com/mvchalupnik/qudi/module"
	"github.com/stretchr/testify/assert"
)

func testSetup(t *testing.T) (*RNGLogic, *rng.RNG) {
	cfg := config.NewConfig("rng.cfg")
	content := "hardware:\n" +
		"  rng:\n" +
		"    module.Class: hardware.rng.RNG\n" +
		"    mean: 10\n" +
		"    noise: 0\n" +
		"logic:\n" +
		"  rnglogic:\n" +
		"    module.Class: logic.rnglogic.RNGLogic\n" +
		"    update_rate: 50\n" +
		"    samples_number: 4\n" +
		"    connect:\n" +
		"      rng: rng\n"
	_, err := cfg.LoadBytes([]byte(content))
	assert.Nil(t, err)

	source := rng.New(cfg.Module("rng"))
	logic := New(cfg.Module("rnglogic"))
	assert.Nil(t, logic.Connect("rng", source))
	assert.Nil(t, logic.Activate())
	return logic, source
}

func TestActivateWithoutConnector(t *testing.T) {
	cfg := config.NewConfig("rng.cfg")
	_, err := cfg.LoadBytes([]byte("logic:\n  rnglogic:\n    module.Class: logic.rnglogic.RNGLogic\n"))
	assert.Nil(t, err)
	logic := New(cfg.Module("rnglogic"))
	assert.NotNil(t, logic.Activate())
}

func TestActivateRejectsBadOptions(t *testing.T) {
	cfg := config.NewConfig("rng.cfg")
	content := "hardware:\n" +
		"  rng:\n" +
		"    module.Class: hardware.rng.RNG\n" +
		"logic:\n" +
		"  rnglogic:\n" +
		"    module.Class: logic.rnglogic.RNGLogic\n" +
		"    update_rate: 0\n" +
		"    connect:\n" +
		"      rng: rng\n"
	_, err := cfg.LoadBytes([]byte(content))
	assert.Nil(t, err)

	logic := New(cfg.Module("rnglogic"))
	assert.Nil(t, logic.Connect("rng", rng.New(cfg.Module("rng"))))
	assert.NotNil(t, logic.Activate())

	logic.updateRate = 50
	logic.samplesNumber = -1
	assert.NotNil(t, logic.Activate())

	logic.samplesNumber = 4
	assert.Nil(t, logic.Activate())
}

func TestConnectRejectsWrongTarget(t *testing.T) {
	cfg := config.NewConfig("rng.cfg")
	_, err := cfg.LoadBytes([]byte("logic:\n  rnglogic:\n    module.Class: logic.rnglogic.RNGLogic\n"))
	assert.Nil(t, err)
	logic := New(cfg.Module("rnglogic"))
	assert.NotNil(t, logic.Connect("rng", "not a module"))
	assert.NotNil(t, logic.Connect("camera", nil))
}

func TestParamsForwarding(t *testing.T) {
	logic, source := testSetup(t)
	assert.Nil(t, logic.SetParams(2.5, 0))
	mean, noise := source.Params()
	assert.Equal(t, 2.5, mean)
	assert.Equal(t, 0.0, noise)

	mean, noise = logic.Params()
	assert.Equal(t, 2.5, mean)
	assert.Equal(t, 0.0, noise)
}

func TestMonitoring(t *testing.T) {
	logic, _ := testSetup(t)
	assert.Nil(t, logic.SetParams(10, 0))
	assert.Nil(t, logic.StartMonitoring())
	assert.Equal(t, module.Running, logic.State())

	err := logic.StartMonitoring()
	assert.NotNil(t, err, "monitor should only start once")

	var values []float64
	for i := 0; i < 100; i++ {
		if values = logic.CurrentValues(); len(values) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 4, len(values))
	for _, v := range values {
		assert.Equal(t, 10.0, v)
	}

	logic.StopMonitoring()
	assert.False(t, logic.IsMonitoring())
	assert.Equal(t, module.Idle, logic.State())
}
