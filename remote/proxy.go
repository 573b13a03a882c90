package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvchalupnik/qudi/events"
	"github.com/mvchalupnik/qudi/rpcclient"
	log "github.com/sirupsen/logrus"
)

// Proxy is the local stand-in for a module hosted by another qudi daemon.
// Method calls are forwarded over XML-RPC with JSON-encoded arguments and
// dispatched on the remote instance by name.
type Proxy struct {
	ref    *Ref
	client *rpcclient.Client
}

// NewProxy creates a proxy for the referenced remote module
func NewProxy(ref *Ref, user string, password string, timeout time.Duration) *Proxy {
	client := rpcclient.NewClient(ref.ServerURL(), false)
	client.SetUser(user)
	client.SetPassword(password)
	client.SetTimeout(timeout)
	return &Proxy{ref: ref, client: client}
}

// Ref returns the remote reference the proxy forwards to
func (p *Proxy) Ref() *Ref {
	return p.ref
}

// Activate pings the hosting daemon and verifies the remote module exists,
// so an unreachable or misconfigured endpoint surfaces at startup instead
// of on the first forwarded call.
func (p *Proxy) Activate() error {
	if _, err := p.client.GetVersion(); err != nil {
		events.Emit(events.CreateRemoteCommunicationEvent(p.ref.Module, p.ref.ServerURL(), false))
		return fmt.Errorf("remote endpoint %s is unreachable: %w", p.ref, err)
	}
	info, err := p.client.GetModuleInfo(p.ref.Module)
	if err != nil {
		events.Emit(events.CreateRemoteCommunicationEvent(p.ref.Module, p.ref.ServerURL(), false))
		return fmt.Errorf("remote endpoint %s does not host module %q: %w", p.ref.ServerURL(), p.ref.Module, err)
	}
	log.WithFields(log.Fields{"module": p.ref.Module, "server": p.ref.ServerURL(), "state": info.StateName}).Info("connected to remote module")
	events.Emit(events.CreateRemoteCommunicationEvent(p.ref.Module, p.ref.ServerURL(), true))
	return nil
}

// Deactivate drops the connection. The remote module itself stays active,
// its lifecycle belongs to the hosting daemon.
func (p *Proxy) Deactivate() error {
	events.Emit(events.CreateRemoteCommunicationEvent(p.ref.Module, p.ref.ServerURL(), false))
	return nil
}

// CallRaw forwards a method call with already JSON-encoded arguments and
// returns the JSON-encoded results without decoding them
func (p *Proxy) CallRaw(method string, argsJSON string) (string, error) {
	reply, err := p.client.CallModule(p.ref.Module, method, argsJSON)
	if err != nil {
		return "", fmt.Errorf("remote call %s.%s failed: %w", p.ref.Module, method, err)
	}
	return reply.Value, nil
}

// Call forwards a method call to the remote module. If result is non-nil
// the JSON-encoded reply is decoded into it: pass a pointer to a single
// value for single-result methods, a pointer to a slice or array for
// multi-result methods.
func (p *Proxy) Call(result interface{}, method string, args ...interface{}) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("unable to encode arguments of %q: %w", method, err)
	}
	reply, err := p.client.CallModule(p.ref.Module, method, string(argsJSON))
	if err != nil {
		return fmt.Errorf("remote call %s.%s failed: %w", p.ref.Module, method, err)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(reply.Value), result); err != nil {
		return fmt.Errorf("unable to decode result of %s.%s: %w", p.ref.Module, method, err)
	}
	return nil
}
