package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// EventSysVersion the event system version
const EventSysVersion = "3.0"

var eventSerial uint64

// Event the event interface definition
type Event interface {
	GetSerial() uint64
	GetType() string
	GetBody() string
}

// BaseEvent the base event, all other events should inherit this BaseEvent to implement the Event interface
type BaseEvent struct {
	serial    uint64
	eventType string
}

// GetSerial returns serial number of event
func (be *BaseEvent) GetSerial() uint64 {
	return be.serial
}

// GetType returns type of given event
func (be *BaseEvent) GetType() string {
	return be.eventType
}

func nextEventSerial() uint64 {
	return atomic.AddUint64(&eventSerial, 1)
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{serial: nextEventSerial(), eventType: eventType}
}

// ModuleStateEvent is emitted on every module state transition
type ModuleStateEvent struct {
	BaseEvent
	ModuleName string
	Base       string
	FromState  string
	ToState    string
}

// CreateModuleStateEvent creates a state transition event for a module
func CreateModuleStateEvent(name string, base string, fromState string, toState string) *ModuleStateEvent {
	return &ModuleStateEvent{
		BaseEvent:  newBaseEvent(fmt.Sprintf("MODULE_STATE_%s", toState)),
		ModuleName: name,
		Base:       base,
		FromState:  fromState,
		ToState:    toState,
	}
}

// GetBody returns the event payload
func (mse *ModuleStateEvent) GetBody() string {
	return fmt.Sprintf("module:%s base:%s from_state:%s to_state:%s", mse.ModuleName, mse.Base, mse.FromState, mse.ToState)
}

// AcquisitionOverrunEvent is emitted when a buffered acquisition task loses
// samples because the consumer read too slowly
type AcquisitionOverrunEvent struct {
	BaseEvent
	ModuleName string
	Channel    string
	Code       int
	Hint       string
}

// CreateAcquisitionOverrunEvent creates a buffer overrun event
func CreateAcquisitionOverrunEvent(name string, channel string, code int, hint string) *AcquisitionOverrunEvent {
	return &AcquisitionOverrunEvent{
		BaseEvent:  newBaseEvent("ACQUISITION_OVERRUN"),
		ModuleName: name,
		Channel:    channel,
		Code:       code,
		Hint:       hint,
	}
}

// GetBody returns the event payload
func (aoe *AcquisitionOverrunEvent) GetBody() string {
	return fmt.Sprintf("module:%s channel:%s code:%d hint:%s", aoe.ModuleName, aoe.Channel, aoe.Code, aoe.Hint)
}

// RemoteCommunicationEvent is emitted for remote module connectivity changes
type RemoteCommunicationEvent struct {
	BaseEvent
	ModuleName string
	ServerURL  string
	Connected  bool
}

// CreateRemoteCommunicationEvent creates a remote connectivity event
func CreateRemoteCommunicationEvent(name string, serverURL string, connected bool) *RemoteCommunicationEvent {
	eventType := "REMOTE_DISCONNECTED"
	if connected {
		eventType = "REMOTE_CONNECTED"
	}
	return &RemoteCommunicationEvent{
		BaseEvent:  newBaseEvent(eventType),
		ModuleName: name,
		ServerURL:  serverURL,
		Connected:  connected,
	}
}

// GetBody returns the event payload
func (rce *RemoteCommunicationEvent) GetBody() string {
	return fmt.Sprintf("module:%s server:%s connected:%t", rce.ModuleName, rce.ServerURL, rce.Connected)
}

// Listener receives emitted events. Callbacks must not block: they are
// invoked from the goroutine that emits the event.
type Listener func(event Event)

type eventEmitter struct {
	lock      sync.Mutex
	listeners map[string][]Listener
}

var emitter = &eventEmitter{listeners: make(map[string][]Listener)}

// Subscribe registers a listener for all events of the given type, or for
// every event if eventType is "*"
func Subscribe(eventType string, listener Listener) {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()
	emitter.listeners[eventType] = append(emitter.listeners[eventType], listener)
}

// UnsubscribeAll removes every registered listener
func UnsubscribeAll() {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()
	emitter.listeners = make(map[string][]Listener)
}

// Emit delivers the event to all matching listeners
func Emit(event Event) {
	log.WithFields(log.Fields{"type": event.GetType(), "serial": event.GetSerial()}).Debug("emit event")
	emitter.lock.Lock()
	listeners := make([]Listener, 0)
	listeners = append(listeners, emitter.listeners[event.GetType()]...)
	listeners = append(listeners, emitter.listeners["*"]...)
	emitter.lock.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}
