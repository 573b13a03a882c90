package remote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the only remote transport this daemon speaks.
const Scheme = "xmlrpc"

// Ref identifies a module hosted by another daemon, written in the
// configuration file as xmlrpc://host:port/name
type Ref struct {
	Scheme string
	Host   string
	Port   int
	Module string
}

// ParseURL parses a remote module reference
func ParseURL(s string) (*Ref, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url %q: %w", s, err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("unsupported remote scheme %q in %q, expect %q", u.Scheme, s, Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host in remote url %q", s)
	}
	if u.Port() == "" {
		return nil, fmt.Errorf("missing port in remote url %q", s)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid port in remote url %q", s)
	}
	module := strings.Trim(u.Path, "/")
	if module == "" || strings.Contains(module, "/") {
		return nil, fmt.Errorf("remote url %q must name exactly one module", s)
	}
	return &Ref{Scheme: u.Scheme, Host: u.Hostname(), Port: port, Module: module}, nil
}

// ServerURL returns the http endpoint of the daemon hosting the module
func (r *Ref) ServerURL() string {
	return fmt.Sprintf("http://%s:%d", r.Host, r.Port)
}

func (r *Ref) String() string {
	return fmt.Sprintf("%s://%s:%d/%s", r.Scheme, r.Host, r.Port, r.Module)
}
