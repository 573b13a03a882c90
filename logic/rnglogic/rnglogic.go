// Package rnglogic polls a random number generator instrument and keeps the
// latest batch of values. The instrument may be local or live in another
// daemon reached through a remote proxy.
package rnglogic

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/hardware/rng"
	"github.com/mvchalupnik/qudi/module"
	"github.com/mvchalupnik/qudi/registry"
	"github.com/mvchalupnik/qudi/remote"
	log "github.com/sirupsen/logrus"
)

func init() {
	registry.Register("logic.rnglogic.RNGLogic", func(d *config.Descriptor) (interface{}, error) {
		return New(d), nil
	})
}

// RNGSource is the instrument interface this logic drives
type RNGSource interface {
	SetParams(mean float64, noise float64) error
	Params() (float64, float64)
	RandomValues(n int) ([]float64, error)
}

// RNGLogic periodically samples a rng instrument
type RNGLogic struct {
	module.Base

	updateRate    float64
	samplesNumber int

	lock   sync.Mutex
	source RNGSource
	values []float64
	stopCh chan struct{}
}

// New creates a rng logic module from its config entry
func New(d *config.Descriptor) *RNGLogic {
	l := &RNGLogic{Base: module.NewBase(d)}
	l.updateRate = d.GetFloat("update_rate", 1)
	l.samplesNumber = d.GetInt("samples_number", 10)
	return l
}

// Connect attaches the rng instrument for the given connector role
func (l *RNGLogic) Connect(role string, target interface{}) error {
	if role != "rng" {
		return fmt.Errorf("unknown connector role %s", role)
	}
	switch v := target.(type) {
	case *rng.RNG:
		l.source = v
	case *remote.Proxy:
		l.source = &remoteRNG{proxy: v}
	default:
		return fmt.Errorf("connector rng does not accept a %T", target)
	}
	return nil
}

func (l *RNGLogic) Activate() error {
	if l.source == nil {
		return fmt.Errorf("connector rng is not connected")
	}
	if l.updateRate <= 0 {
		return fmt.Errorf("update_rate must be positive, got %v", l.updateRate)
	}
	if l.samplesNumber <= 0 {
		return fmt.Errorf("samples_number must be positive, got %d", l.samplesNumber)
	}
	return nil
}

func (l *RNGLogic) Deactivate() error {
	l.StopMonitoring()
	return nil
}

// SetParams forwards new generator parameters to the instrument
func (l *RNGLogic) SetParams(mean float64, noise float64) error {
	return l.source.SetParams(mean, noise)
}

// Params returns the generator parameters of the instrument
func (l *RNGLogic) Params() (float64, float64) {
	return l.source.Params()
}

// StartMonitoring begins polling the instrument. The module reports the
// Running state while the monitor runs.
func (l *RNGLogic) StartMonitoring() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.stopCh != nil {
		return fmt.Errorf("module %s is already monitoring", l.GetName())
	}
	l.stopCh = make(chan struct{})
	l.SetState(module.Running)
	go l.monitor(l.stopCh)
	log.WithFields(log.Fields{"module": l.GetName(), "updateRate": l.updateRate}).Info("start rng monitoring")
	return nil
}

// StopMonitoring halts the polling loop
func (l *RNGLogic) StopMonitoring() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.stopCh == nil {
		return
	}
	close(l.stopCh)
	l.stopCh = nil
	l.SetState(module.Idle)
}

// IsMonitoring reports whether the polling loop runs
func (l *RNGLogic) IsMonitoring() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.stopCh != nil
}

func (l *RNGLogic) monitor(stopCh chan struct{}) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / l.updateRate))
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
		values, err := l.source.RandomValues(l.samplesNumber)
		if err != nil {
			log.WithFields(log.Fields{"module": l.GetName()}).WithError(err).Error("failed to sample rng")
			continue
		}
		l.lock.Lock()
		l.values = values
		l.lock.Unlock()
	}
}

// CurrentValues returns the batch of values from the last poll
func (l *RNGLogic) CurrentValues() []float64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	values := make([]float64, len(l.values))
	copy(values, l.values)
	return values
}

// remoteRNG adapts a remote proxy to the RNGSource interface
type remoteRNG struct {
	proxy *remote.Proxy
}

func (r *remoteRNG) SetParams(mean float64, noise float64) error {
	return r.proxy.Call(nil, "SetParams", mean, noise)
}

func (r *remoteRNG) Params() (float64, float64) {
	var result []float64
	if err := r.proxy.Call(&result, "Params"); err != nil || len(result) != 2 {
		log.WithError(err).Error("failed to read rng parameters")
		return 0, 0
	}
	return result[0], result[1]
}

func (r *remoteRNG) RandomValues(n int) ([]float64, error) {
	var values []float64
	if err := r.proxy.Call(&values, "RandomValues", n); err != nil {
		return nil, err
	}
	return values, nil
}
