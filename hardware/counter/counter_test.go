package counter

import (
	"strings"
	"testing"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/events"
	"github.com/stretchr/testify/assert"
)

func testCard(t *testing.T) *Card {
	cfg := config.NewConfig("counter.cfg")
	content := "hardware:\n" +
		"  daq:\n" +
		"    module.Class: hardware.counter.Card\n" +
		"    counter_channels:\n" +
		"      - ctr0\n" +
		"      - ctr1\n" +
		"    edge_rate: 100000\n"
	_, err := cfg.LoadBytes([]byte(content))
	assert.Nil(t, err)
	d := cfg.Module("daq")
	assert.NotNil(t, d)
	return New(d)
}

func TestChannels(t *testing.T) {
	card := testCard(t)
	assert.Equal(t, []string{"ctr0", "ctr1"}, card.Channels())
}

func TestChannelReservation(t *testing.T) {
	card := testCard(t)

	clock, err := card.NewClockTask("ctr0", 1000, 0.5)
	assert.Nil(t, err)

	_, err = card.NewClockTask("ctr0", 1000, 0.5)
	assert.NotNil(t, err, "double reservation should fail")

	_, err = card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 1000})
	assert.NotNil(t, err, "count task on a clock channel should fail")

	assert.Nil(t, clock.Close())
	_, err = card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 1000})
	assert.Nil(t, err, "closing the clock should release the channel")
}

func TestUnknownChannel(t *testing.T) {
	card := testCard(t)
	_, err := card.NewClockTask("ctr9", 1000, 0.5)
	assert.NotNil(t, err)
}

func TestClockValidation(t *testing.T) {
	card := testCard(t)
	_, err := card.NewClockTask("ctr0", 0, 0.5)
	assert.NotNil(t, err)
	_, err = card.NewClockTask("ctr0", 1000, 1.5)
	assert.NotNil(t, err)
}

func TestClockIdleLevel(t *testing.T) {
	card := testCard(t)
	clock, err := card.NewClockTask("ctr0", 1000, 0.5)
	assert.Nil(t, err)
	defer clock.Close()
	task := clock.(*ClockTask)
	assert.False(t, task.IdleHigh())
	assert.Nil(t, task.SetIdleHigh(true))
	assert.True(t, task.IdleHigh())
	assert.Nil(t, clock.Start())
	assert.NotNil(t, task.SetIdleHigh(false))
}

func TestCountValidation(t *testing.T) {
	card := testCard(t)
	_, err := card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 0})
	assert.NotNil(t, err)
	_, err = card.NewCountTask("ctr0", Timing{Mode: Finite, Rate: 1000})
	assert.NotNil(t, err, "finite mode needs a sample count")
}

func TestFiniteAcquisition(t *testing.T) {
	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Finite, Rate: 2000, SamplesPerChannel: 20})
	assert.Nil(t, err)
	defer task.Close()

	assert.Nil(t, task.Start())
	samples, err := task.Read(20, 5*time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 20, len(samples))
	for _, s := range samples {
		if s == 0 {
			t.Fatal("expected counted edges in every sample")
		}
	}
	assert.Nil(t, task.Err())
}

func TestContinuousAcquisition(t *testing.T) {
	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 2000, BufferSize: 1000})
	assert.Nil(t, err)
	defer task.Close()

	assert.Nil(t, task.Start())
	samples, err := task.Read(10, 5*time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 10, len(samples))

	assert.Nil(t, task.Stop())
	_, err = task.ReadAvailable()
	assert.Nil(t, err)
}

func TestClockSource(t *testing.T) {
	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 1000, Source: "ctr1"})
	assert.Nil(t, err)
	defer task.Close()

	err = task.Start()
	assert.NotNil(t, err, "starting without the clock task should fail")

	clock, err := card.NewClockTask("ctr1", 1000, 0.5)
	assert.Nil(t, err)
	defer clock.Close()

	err = task.Start()
	assert.NotNil(t, err, "a reserved but stopped clock is no sample clock source")

	assert.Nil(t, clock.Start())
	assert.Nil(t, task.Start())
}

func TestExtremeSampleRate(t *testing.T) {
	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Finite, Rate: 1e10, SamplesPerChannel: 5})
	assert.Nil(t, err)
	defer task.Close()

	assert.Nil(t, task.Start())
	samples, err := task.Read(5, 2*time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 5, len(samples))
}

func TestReadTimeout(t *testing.T) {
	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 10, BufferSize: 1000})
	assert.Nil(t, err)
	defer task.Close()

	assert.Nil(t, task.Start())
	_, err = task.Read(1000, 200*time.Millisecond)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "timed out"))
}

func TestOverrunStopsTask(t *testing.T) {
	defer events.UnsubscribeAll()
	received := make(chan events.Event, 1)
	events.Subscribe("ACQUISITION_OVERRUN", func(event events.Event) {
		select {
		case received <- event:
		default:
		}
	})

	card := testCard(t)
	task, err := card.NewCountTask("ctr0", Timing{Mode: Continuous, Rate: 5000, BufferSize: 5})
	assert.Nil(t, err)
	defer task.Close()

	assert.Nil(t, task.Start())

	var overrun error
	for i := 0; i < 100; i++ {
		if overrun = task.Err(); overrun != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if overrun == nil {
		t.Fatal("expected a buffer overrun")
	}

	oe, ok := overrun.(*OverrunError)
	if !ok {
		t.Fatalf("expected *OverrunError, got %v", overrun)
	}
	assert.Equal(t, "ctr0", oe.Channel)
	assert.True(t, strings.Contains(oe.Error(), "-200279"))
	assert.True(t, strings.Contains(oe.Error(), "increase the buffer size"))

	// the task refuses further reads and restarts
	_, err = task.Read(1, time.Second)
	assert.Equal(t, overrun, err)
	assert.NotNil(t, task.Start())

	select {
	case event := <-received:
		oev := event.(*events.AcquisitionOverrunEvent)
		assert.Equal(t, "ctr0", oev.Channel)
		assert.Equal(t, OverrunCode, oev.Code)
	case <-time.After(time.Second):
		t.Fatal("expected an overrun event")
	}
}
