package counter

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mvchalupnik/qudi/events"
	log "github.com/sirupsen/logrus"
)

// OverrunCode is the status code of a buffer overrun error
const OverrunCode = -200279

// OverrunHint tells the user how to avoid buffer overruns
const OverrunHint = "increase the buffer size, read the data more frequently, or specify a fixed number of samples to read"

// OverrunError is returned when a continuous acquisition produced samples
// faster than the consumer read them and the sample buffer filled up
type OverrunError struct {
	Channel string
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf("sample buffer overrun on channel %s, status code %d, to avoid this error %s", e.Channel, OverrunCode, OverrunHint)
}

// SampleMode selects between a fixed length and an endless acquisition
type SampleMode int

const (
	// Finite acquires exactly SamplesPerChannel samples and then stops
	Finite SampleMode = iota
	// Continuous acquires until the task is stopped
	Continuous
)

// Timing configures the sample clock of a counting task
type Timing struct {
	Mode              SampleMode
	Rate              float64
	SamplesPerChannel int
	BufferSize        int
	Source            string
}

// defaultBufferSize bounds a continuous acquisition when the caller did not
// size the buffer explicitly
const defaultBufferSize = 10000

// CountTask counts input edges on a counter channel, one sample per tick of
// the sample clock, into a bounded buffer
type CountTask struct {
	card    *Card
	channel string
	timing  Timing

	lock     sync.Mutex
	cond     *sync.Cond
	buf      []uint32
	produced int
	running  bool
	closed   bool
	err      error
	stopCh   chan struct{}
}

// NewCountTask reserves a channel and prepares a buffered edge counting
// task on it
func (c *Card) NewCountTask(channel string, timing Timing) (Count, error) {
	if timing.Rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", timing.Rate)
	}
	if timing.Mode == Finite && timing.SamplesPerChannel <= 0 {
		return nil, fmt.Errorf("finite acquisition needs a positive sample count, got %d", timing.SamplesPerChannel)
	}
	if timing.BufferSize <= 0 {
		if timing.Mode == Finite {
			timing.BufferSize = timing.SamplesPerChannel
		} else {
			timing.BufferSize = defaultBufferSize
		}
	}
	if err := c.reserve(channel, "count"); err != nil {
		return nil, err
	}
	t := &CountTask{card: c, channel: channel, timing: timing}
	t.cond = sync.NewCond(&t.lock)
	return t, nil
}

// Channel returns the channel the task counts on
func (t *CountTask) Channel() string {
	return t.channel
}

// Start begins producing samples at the sample clock rate
func (t *CountTask) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return fmt.Errorf("count task on channel %s is closed", t.channel)
	}
	if t.err != nil {
		return t.err
	}
	if t.running {
		return nil
	}
	if t.timing.Source != "" {
		clock := t.card.clockOn(t.timing.Source)
		if clock == nil || !clock.IsRunning() {
			return fmt.Errorf("sample clock source %s has no running clock task", t.timing.Source)
		}
	}
	t.running = true
	t.stopCh = make(chan struct{})
	go t.produce(t.stopCh)
	return nil
}

// produce generates one sample per sample clock tick until the task is
// stopped, the finite sample count is reached or the buffer overruns
func (t *CountTask) produce(stopCh chan struct{}) {
	interval := time.Duration(float64(time.Second) / t.timing.Rate)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	expected := t.card.edgeRate / t.timing.Rate
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
		// edges counted during one sample interval with some jitter
		sample := uint32(expected * (0.9 + 0.2*rand.Float64()))

		t.lock.Lock()
		if !t.running {
			t.lock.Unlock()
			return
		}
		if len(t.buf) >= t.timing.BufferSize {
			t.err = &OverrunError{Channel: t.channel}
			t.running = false
			t.cond.Broadcast()
			t.lock.Unlock()
			t.notifyOverrun()
			return
		}
		t.buf = append(t.buf, sample)
		t.produced++
		if t.timing.Mode == Finite && t.produced >= t.timing.SamplesPerChannel {
			t.running = false
			t.cond.Broadcast()
			t.lock.Unlock()
			return
		}
		t.cond.Broadcast()
		t.lock.Unlock()
	}
}

// notifyOverrun publishes the overrun to the log and the event bus. It is
// called without the task lock held so listeners may call back into the task.
func (t *CountTask) notifyOverrun() {
	log.WithFields(log.Fields{"module": t.card.GetName(), "channel": t.channel, "code": OverrunCode}).Error("sample buffer overrun")
	events.Emit(events.CreateAcquisitionOverrunEvent(t.card.GetName(), t.channel, OverrunCode, OverrunHint))
}

// Read takes n samples from the buffer, waiting up to timeout for them to
// arrive. A read after an overrun fails with the overrun error.
func (t *CountTask) Read(n int, timeout time.Duration) ([]uint32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of samples must be positive, got %d", n)
	}
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		t.lock.Lock()
		t.cond.Broadcast()
		t.lock.Unlock()
	})
	defer timer.Stop()

	t.lock.Lock()
	defer t.lock.Unlock()
	for {
		if t.err != nil {
			return nil, t.err
		}
		if len(t.buf) >= n {
			samples := make([]uint32, n)
			copy(samples, t.buf)
			t.buf = t.buf[n:]
			return samples, nil
		}
		if !t.running {
			return nil, fmt.Errorf("count task on channel %s stopped with %d of %d samples available", t.channel, len(t.buf), n)
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("read on channel %s timed out with %d of %d samples available", t.channel, len(t.buf), n)
		}
		t.cond.Wait()
	}
}

// ReadAvailable drains the buffer without waiting
func (t *CountTask) ReadAvailable() ([]uint32, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.buf) == 0 && t.err != nil {
		return nil, t.err
	}
	samples := t.buf
	t.buf = nil
	return samples, nil
}

// Err returns the error that stopped the task, if any
func (t *CountTask) Err() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.err
}

// Stop halts sample production. Buffered samples stay readable.
func (t *CountTask) Stop() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return fmt.Errorf("count task on channel %s is closed", t.channel)
	}
	t.stopLocked()
	return nil
}

func (t *CountTask) stopLocked() {
	if t.running {
		t.running = false
		close(t.stopCh)
		t.cond.Broadcast()
	}
}

// Close stops the task and releases the channel
func (t *CountTask) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil
	}
	t.stopLocked()
	t.closed = true
	t.card.release(t.channel)
	return nil
}
