// Package rng implements a software random number generator instrument.
// It produces gaussian distributed values around a configurable mean and
// serves as the simplest example of a hardware module.
package rng

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/module"
	"github.com/mvchalupnik/qudi/registry"
	log "github.com/sirupsen/logrus"
)

func init() {
	registry.Register("hardware.rng.RNG", func(d *config.Descriptor) (interface{}, error) {
		return New(d), nil
	})
}

// RNG is a simulated instrument that draws gaussian random numbers with a
// configurable mean and noise amplitude.
type RNG struct {
	module.Base

	lock  sync.Mutex
	mean  float64
	noise float64
}

// New creates a RNG module from its config entry
func New(d *config.Descriptor) *RNG {
	r := &RNG{Base: module.NewBase(d)}
	if !d.HasOption("mean") {
		log.WithFields(log.Fields{"module": d.GetFullName()}).Warn("option mean is not set, using default 0")
	}
	if !d.HasOption("noise") {
		log.WithFields(log.Fields{"module": d.GetFullName()}).Warn("option noise is not set, using default 1")
	}
	r.mean = d.GetFloat("mean", 0)
	r.noise = d.GetFloat("noise", 1)
	return r
}

func (r *RNG) Activate() error {
	log.WithFields(log.Fields{"module": r.GetName(), "mean": r.mean, "noise": r.noise}).Info("activate rng")
	return nil
}

func (r *RNG) Deactivate() error {
	return nil
}

// SetParams changes the mean and the noise amplitude of the generator
func (r *RNG) SetParams(mean float64, noise float64) error {
	if noise < 0 {
		return fmt.Errorf("noise amplitude must not be negative, got %v", noise)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.mean = mean
	r.noise = noise
	return nil
}

// Params returns the current mean and noise amplitude
func (r *RNG) Params() (float64, float64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.mean, r.noise
}

// RandomValue draws a single gaussian random number
func (r *RNG) RandomValue() float64 {
	r.lock.Lock()
	mean, noise := r.mean, r.noise
	r.lock.Unlock()
	return mean + noise*rand.NormFloat64()
}

// RandomValues draws n gaussian random numbers
func (r *RNG) RandomValues(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of values must be positive, got %d", n)
	}
	r.lock.Lock()
	mean, noise := r.mean, r.noise
	r.lock.Unlock()
	values := make([]float64, n)
	for i := range values {
		values[i] = mean + noise*rand.NormFloat64()
	}
	return values, nil
}

// The echo methods below exercise the value types the remote call layer
// can transfer. They are handy when testing a remote rng connection.

func (r *RNG) EchoFloat(v float64) float64 {
	return v
}

func (r *RNG) EchoString(s string) string {
	return s
}

func (r *RNG) EchoBool(b bool) bool {
	return b
}

func (r *RNG) EchoFloatSlice(values []float64) []float64 {
	return values
}

func (r *RNG) EchoMatrix(rows [][]float64) [][]float64 {
	return rows
}
