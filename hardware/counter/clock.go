package counter

import (
	"fmt"
	"sync"
)

// ClockTask outputs a sample clock pulse train on a counter channel. The
// clock itself produces no data, counting tasks reference it as their
// sample timing source.
type ClockTask struct {
	card      *Card
	channel   string
	frequency float64
	dutyCycle float64

	lock     sync.Mutex
	running  bool
	closed   bool
	idleHigh bool
}

// NewClockTask reserves a channel and prepares a sample clock on it
func (c *Card) NewClockTask(channel string, frequency float64, dutyCycle float64) (Clock, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("clock frequency must be positive, got %v", frequency)
	}
	if dutyCycle <= 0 || dutyCycle >= 1 {
		return nil, fmt.Errorf("duty cycle must be between 0 and 1, got %v", dutyCycle)
	}
	if err := c.reserve(channel, "clock"); err != nil {
		return nil, err
	}
	t := &ClockTask{card: c, channel: channel, frequency: frequency, dutyCycle: dutyCycle}
	c.lock.Lock()
	c.clocks[channel] = t
	c.lock.Unlock()
	return t, nil
}

// Channel returns the channel the clock runs on
func (t *ClockTask) Channel() string {
	return t.channel
}

// Frequency returns the pulse rate in Hz
func (t *ClockTask) Frequency() float64 {
	return t.frequency
}

func (t *ClockTask) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return fmt.Errorf("clock task on channel %s is closed", t.channel)
	}
	t.running = true
	return nil
}

func (t *ClockTask) Stop() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return fmt.Errorf("clock task on channel %s is closed", t.channel)
	}
	t.running = false
	return nil
}

// Close stops the clock and releases the channel
func (t *ClockTask) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil
	}
	t.running = false
	t.closed = true
	t.card.release(t.channel)
	return nil
}

// SetIdleHigh selects the output level the channel rests at while the
// clock is stopped. Must be called before Start.
func (t *ClockTask) SetIdleHigh(high bool) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.running {
		return fmt.Errorf("idle level of channel %s cannot change while the clock runs", t.channel)
	}
	t.idleHigh = high
	return nil
}

// IdleHigh reports the configured idle output level
func (t *ClockTask) IdleHigh() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.idleHigh
}

// IsRunning reports whether the clock is producing pulses
func (t *ClockTask) IsRunning() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.running
}
