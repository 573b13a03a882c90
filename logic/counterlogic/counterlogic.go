// Package counterlogic runs a continuous count rate measurement on a
// counter card. A sample clock paces a buffered edge counting task and the
// acquired samples are converted into a rolling window of count rates.
package counterlogic

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/hardware/counter"
	"github.com/mvchalupnik/qudi/module"
	"github.com/mvchalupnik/qudi/registry"
	log "github.com/sirupsen/logrus"
)

func init() {
	registry.Register("logic.counterlogic.CounterLogic", func(d *config.Descriptor) (interface{}, error) {
		return New(d), nil
	})
}

// CounterLogic measures a count rate with a clock task and a buffered
// counting task on the connected card
type CounterLogic struct {
	module.Base

	clockChannel   string
	counterChannel string
	clockFrequency float64
	bufferSize     int
	windowSize     int

	lock    sync.Mutex
	device  counter.Device
	clock   counter.Clock
	task    counter.Count
	window  []float64
	lastErr error
	stopCh  chan struct{}
}

// New creates a counter logic module from its config entry
func New(d *config.Descriptor) *CounterLogic {
	l := &CounterLogic{Base: module.NewBase(d)}
	l.clockChannel = d.GetString("clock_channel", "ctr0")
	l.counterChannel = d.GetString("counter_channel", "ctr1")
	l.clockFrequency = d.GetFloat("clock_frequency", 50)
	l.bufferSize = d.GetInt("buffer_size", 0)
	l.windowSize = d.GetInt("window_size", 300)
	return l
}

// Connect attaches the counter card for the given connector role
func (l *CounterLogic) Connect(role string, target interface{}) error {
	if role != "counter" {
		return fmt.Errorf("unknown connector role %s", role)
	}
	device, ok := target.(counter.Device)
	if !ok {
		return fmt.Errorf("connector counter does not accept a %T", target)
	}
	l.device = device
	return nil
}

func (l *CounterLogic) Activate() error {
	if l.device == nil {
		return fmt.Errorf("connector counter is not connected")
	}
	if l.clockChannel == l.counterChannel {
		return fmt.Errorf("clock channel and counter channel must differ, both are %s", l.clockChannel)
	}
	return nil
}

func (l *CounterLogic) Deactivate() error {
	return l.StopCounting()
}

// StartCounting sets up the clock and counting tasks and begins filling the
// count rate window. The module is locked while the measurement runs.
func (l *CounterLogic) StartCounting() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.stopCh != nil {
		return fmt.Errorf("module %s is already counting", l.GetName())
	}

	clock, err := l.device.NewClockTask(l.clockChannel, l.clockFrequency, 0.5)
	if err != nil {
		return fmt.Errorf("unable to set up the sample clock: %w", err)
	}
	task, err := l.device.NewCountTask(l.counterChannel, counter.Timing{
		Mode:       counter.Continuous,
		Rate:       l.clockFrequency,
		BufferSize: l.bufferSize,
		Source:     l.clockChannel,
	})
	if err != nil {
		clock.Close()
		return fmt.Errorf("unable to set up the counting task: %w", err)
	}
	if err := clock.Start(); err != nil {
		task.Close()
		clock.Close()
		return err
	}
	if err := task.Start(); err != nil {
		task.Close()
		clock.Close()
		return err
	}

	l.clock = clock
	l.task = task
	l.window = nil
	l.lastErr = nil
	l.stopCh = make(chan struct{})
	l.SetState(module.Locked)
	go l.read(task, l.stopCh)
	log.WithFields(log.Fields{"module": l.GetName(), "clock": l.clockChannel, "counter": l.counterChannel, "frequency": l.clockFrequency}).Info("start counting")
	return nil
}

// read drains the counting task into the rolling window until the
// measurement is stopped or the task fails
func (l *CounterLogic) read(task counter.Count, stopCh chan struct{}) {
	chunk := int(l.clockFrequency / 10)
	if chunk < 1 {
		chunk = 1
	}
	timeout := time.Duration(float64(chunk)/l.clockFrequency*float64(time.Second)) + time.Second
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		samples, err := task.Read(chunk, timeout)
		if err != nil {
			select {
			case <-stopCh:
				return
			default:
			}
			l.fail(err)
			return
		}
		l.lock.Lock()
		for _, s := range samples {
			l.window = append(l.window, float64(s)*l.clockFrequency)
		}
		if len(l.window) > l.windowSize {
			l.window = l.window[len(l.window)-l.windowSize:]
		}
		l.lock.Unlock()
	}
}

// fail tears the measurement down after a task error, buffer overruns
// included
func (l *CounterLogic) fail(err error) {
	log.WithFields(log.Fields{"module": l.GetName()}).WithError(err).Error("counting failed")
	l.lock.Lock()
	defer l.lock.Unlock()
	l.lastErr = err
	l.teardown()
}

// teardown closes the tasks and unlocks the module. The caller holds the
// logic lock.
func (l *CounterLogic) teardown() {
	if l.stopCh == nil {
		return
	}
	close(l.stopCh)
	l.stopCh = nil
	if l.task != nil {
		l.task.Close()
		l.task = nil
	}
	if l.clock != nil {
		l.clock.Close()
		l.clock = nil
	}
	l.SetState(module.Idle)
}

// StopCounting halts the measurement and releases the channels
func (l *CounterLogic) StopCounting() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.teardown()
	return nil
}

// IsCounting reports whether the measurement runs
func (l *CounterLogic) IsCounting() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.stopCh != nil
}

// CountRate returns the most recent count rate in Hz
func (l *CounterLogic) CountRate() float64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.window) == 0 {
		return 0
	}
	return l.window[len(l.window)-1]
}

// Window returns the rolling window of count rates in Hz
func (l *CounterLogic) Window() []float64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	window := make([]float64, len(l.window))
	copy(window, l.window)
	return window
}

// LastError returns the error that ended the last measurement, if any
func (l *CounterLogic) LastError() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.lastErr
}
