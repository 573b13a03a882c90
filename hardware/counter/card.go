// Package counter implements a simulated data acquisition card with counter
// channels. A channel can run either a sample clock or a buffered edge
// counting task. Channels are an exclusive resource, reserving a channel
// that is already in use is an error.
package counter

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/module"
	"github.com/mvchalupnik/qudi/registry"
	log "github.com/sirupsen/logrus"
)

func init() {
	registry.Register("hardware.counter.Card", func(d *config.Descriptor) (interface{}, error) {
		return New(d), nil
	})
}

// Device is the view of a counter card the logic modules connect to
type Device interface {
	Channels() []string
	NewClockTask(channel string, frequency float64, dutyCycle float64) (Clock, error)
	NewCountTask(channel string, timing Timing) (Count, error)
}

// Clock is a running sample clock on a counter channel
type Clock interface {
	Channel() string
	Start() error
	Stop() error
	Close() error
}

// Count is a buffered edge counting task on a counter channel
type Count interface {
	Channel() string
	Start() error
	Stop() error
	Close() error
	Read(n int, timeout time.Duration) ([]uint32, error)
	ReadAvailable() ([]uint32, error)
	Err() error
}

// Card simulates a multi channel counter/timer card. Edges arrive on every
// counter input at a configurable average rate.
type Card struct {
	module.Base

	lock     sync.Mutex
	channels []string
	edgeRate float64
	reserved map[string]string
	clocks   map[string]*ClockTask
}

// New creates a counter card module from its config entry
func New(d *config.Descriptor) *Card {
	c := &Card{
		Base:     module.NewBase(d),
		reserved: make(map[string]string),
		clocks:   make(map[string]*ClockTask),
	}
	c.channels = d.GetStringArray("counter_channels")
	if len(c.channels) == 0 {
		log.WithFields(log.Fields{"module": d.GetFullName()}).Warn("option counter_channels is not set, using default ctr0..ctr3")
		c.channels = []string{"ctr0", "ctr1", "ctr2", "ctr3"}
	}
	if !d.HasOption("edge_rate") {
		log.WithFields(log.Fields{"module": d.GetFullName()}).Warn("option edge_rate is not set, using default 1e6 Hz")
	}
	c.edgeRate = d.GetFloat("edge_rate", 1e6)
	return c
}

func (c *Card) Activate() error {
	log.WithFields(log.Fields{"module": c.GetName(), "channels": c.channels, "edgeRate": c.edgeRate}).Info("activate counter card")
	return nil
}

// Deactivate releases all channel reservations
func (c *Card) Deactivate() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.reserved = make(map[string]string)
	c.clocks = make(map[string]*ClockTask)
	return nil
}

// Channels returns the counter channels of the card
func (c *Card) Channels() []string {
	return c.channels
}

func (c *Card) hasChannel(channel string) bool {
	for _, ch := range c.channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// reserve takes exclusive ownership of a channel for a task
func (c *Card) reserve(channel string, purpose string) error {
	if !c.hasChannel(channel) {
		return fmt.Errorf("no such counter channel %s", channel)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if owner, ok := c.reserved[channel]; ok {
		return fmt.Errorf("channel %s is already in use by a %s task", channel, owner)
	}
	c.reserved[channel] = purpose
	return nil
}

func (c *Card) release(channel string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.reserved, channel)
	delete(c.clocks, channel)
}

// clockOn returns the clock task holding the channel, or nil
func (c *Card) clockOn(channel string) *ClockTask {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.clocks[channel]
}
