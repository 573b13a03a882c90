package main

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/rpc"
	"github.com/mvchalupnik/qudi/module"
	xml "github.com/ochinchina/gorilla-xmlrpc/xml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// XMLRPC is the http control surface of the daemon, it serves the XML-RPC
// interface, the REST interface and the prometheus metrics
type XMLRPC struct {
	listeners map[string]net.Listener
	// true if RPC is started
	started bool
}

type httpBasicAuth struct {
	user     string
	password string
	handler  http.Handler
}

func NewHTTPBasicAuth(user string, password string, handler http.Handler) *httpBasicAuth {
	if user != "" && password != "" {
		log.Debug("require authentication")
	}
	return &httpBasicAuth{user: user, password: password, handler: handler}
}

func (h *httpBasicAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.user == "" || h.password == "" {
		h.handler.ServeHTTP(w, r)
		return
	}
	username, password, ok := r.BasicAuth()
	if ok && username == h.user {
		if strings.HasPrefix(h.password, "{SHA}") {
			hash := sha1.New()
			io.WriteString(hash, password)
			if hex.EncodeToString(hash.Sum(nil)) == h.password[5:] {
				h.handler.ServeHTTP(w, r)
				return
			}
		} else if password == h.password {
			h.handler.ServeHTTP(w, r)
			return
		}
	}
	w.Header().Set("WWW-Authenticate", "Basic realm=\"qudi\"")
	w.WriteHeader(401)
}

func NewXMLRPC() *XMLRPC {
	return &XMLRPC{listeners: make(map[string]net.Listener), started: false}
}

// Stop network listening
func (p *XMLRPC) Stop() {
	if !p.started {
		return
	}
	log.Info("stop listening")
	for _, listener := range p.listeners {
		listener.Close()
	}
	p.listeners = make(map[string]net.Listener)
	p.started = false
}

// StartUnixHTTPServer serves the control surface on a unix domain socket
func (p *XMLRPC) StartUnixHTTPServer(user string, password string, listenAddr string, q *Qudi) {
	os.Remove(listenAddr)
	p.startHTTPServer(user, password, "unix", listenAddr, q)
}

// StartInetHTTPServer serves the control surface on a tcp address
func (p *XMLRPC) StartInetHTTPServer(user string, password string, listenAddr string, q *Qudi) {
	p.startHTTPServer(user, password, "tcp", listenAddr, q)
}

func (p *XMLRPC) startHTTPServer(user string, password string, protocol string, listenAddr string, q *Qudi) {
	if p.started {
		return
	}
	p.started = true
	mux := http.NewServeMux()
	mux.Handle("/RPC2", NewHTTPBasicAuth(user, password, p.createRPCServer(q)))
	restHandler := NewRestful(q).CreateHandler()
	mux.Handle("/module/", NewHTTPBasicAuth(user, password, restHandler))
	mux.Handle("/qudi/", NewHTTPBasicAuth(user, password, restHandler))
	mux.Handle("/metrics", NewHTTPBasicAuth(user, password, p.createMetricsHandler(q)))
	listener, err := net.Listen(protocol, listenAddr)
	if err == nil {
		log.WithFields(log.Fields{"addr": listenAddr, "protocol": protocol}).Info("success to listen on address")
		p.listeners[protocol] = listener
		http.Serve(listener, mux)
	} else {
		log.WithFields(log.Fields{"addr": listenAddr, "protocol": protocol}).Fatal("fail to listen on address")
	}
}

func (p *XMLRPC) createMetricsHandler(q *Qudi) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(module.NewModuleCollector(q.GetManager()))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (p *XMLRPC) createRPCServer(q *Qudi) *rpc.Server {
	RPC := rpc.NewServer()
	xmlrpcCodec := xml.NewCodec()
	RPC.RegisterCodec(xmlrpcCodec, "text/xml")
	RPC.RegisterService(q, "")

	xmlrpcCodec.RegisterAlias("qudi.getVersion", "Qudi.GetVersion")
	xmlrpcCodec.RegisterAlias("qudi.getAPIVersion", "Qudi.GetAPIVersion")
	xmlrpcCodec.RegisterAlias("qudi.getIdentification", "Qudi.GetIdentification")
	xmlrpcCodec.RegisterAlias("qudi.getState", "Qudi.GetState")
	xmlrpcCodec.RegisterAlias("qudi.getPID", "Qudi.GetPID")
	xmlrpcCodec.RegisterAlias("qudi.getAllModuleInfo", "Qudi.GetAllModuleInfo")
	xmlrpcCodec.RegisterAlias("qudi.getModuleInfo", "Qudi.GetModuleInfo")
	xmlrpcCodec.RegisterAlias("qudi.activateModule", "Qudi.ActivateModule")
	xmlrpcCodec.RegisterAlias("qudi.deactivateModule", "Qudi.DeactivateModule")
	xmlrpcCodec.RegisterAlias("qudi.activateAllModules", "Qudi.ActivateAllModules")
	xmlrpcCodec.RegisterAlias("qudi.deactivateAllModules", "Qudi.DeactivateAllModules")
	xmlrpcCodec.RegisterAlias("qudi.callModule", "Qudi.CallModule")
	xmlrpcCodec.RegisterAlias("qudi.reloadConfig", "Qudi.ReloadConfig")
	xmlrpcCodec.RegisterAlias("qudi.shutdown", "Qudi.Shutdown")
	xmlrpcCodec.RegisterAlias("qudi.restart", "Qudi.Restart")
	return RPC
}
