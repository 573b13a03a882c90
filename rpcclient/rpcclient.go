// Package rpcclient is the XML-RPC client library of the qudi daemon, used
// by the ctl subcommands and by the remote module proxies.
package rpcclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mvchalupnik/qudi/types"
	"github.com/ochinchina/gorilla-xmlrpc/xml"
)

// Client the qudi XML-RPC client
type Client struct {
	serverurl string
	user      string
	password  string
	timeout   time.Duration
	verbose   bool
}

// VersionReply the version reply message from the daemon
type VersionReply struct {
	Value string
}

// StateChangeReply the module activate/deactivate reply message
type StateChangeReply struct {
	Value bool
}

// ShutdownReply the daemon shutdown reply message
type ShutdownReply StateChangeReply

// AllModuleInfoReply all the module information from the daemon
type AllModuleInfoReply struct {
	Value []types.ModuleInfo
}

// ModuleInfoReply single module information from the daemon
type ModuleInfoReply struct {
	Value types.ModuleInfo
}

// ReloadConfigReply the configuration reload reply message
type ReloadConfigReply struct {
	AddedModules   []string
	ChangedModules []string
	RemovedModules []string
}

// CallReply the reply of a forwarded module method call, the value is the
// JSON encoding of the method results
type CallReply struct {
	Value string
}

// PidReply the daemon pid reply message
type PidReply struct {
	Pid int
}

var emptyReader = io.NopCloser(&bytes.Buffer{})

// NewClient creates a Client object
func NewClient(serverurl string, verbose bool) *Client {
	return &Client{serverurl: serverurl, timeout: 0, verbose: verbose}
}

// SetUser sets username for basic http auth
func (r *Client) SetUser(user string) {
	r.user = user
}

// SetPassword sets password for basic http auth
func (r *Client) SetPassword(password string) {
	r.password = password
}

// SetTimeout sets http request timeout
func (r *Client) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// URL returns RPC url
func (r *Client) URL() string {
	return fmt.Sprintf("%s/RPC2", r.serverurl)
}

func (r *Client) createHTTPRequest(method string, url string, data interface{}) (*http.Request, error) {
	buf, _ := xml.EncodeClientRequest(method, data)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(buf))
	if err != nil {
		if r.verbose {
			fmt.Println("Fail to create request:", err)
		}
		return nil, err
	}

	if len(r.user) > 0 && len(r.password) > 0 {
		req.SetBasicAuth(r.user, r.password)
	}

	req.Header.Set("Content-Type", "text/xml")

	return req, nil
}

func (r *Client) processResponse(resp *http.Response, processBody func(io.ReadCloser, error)) {
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		if r.verbose {
			fmt.Println("Bad Response:", resp.Status)
		}
		processBody(emptyReader, fmt.Errorf("bad response with status code %d", resp.StatusCode))
	} else {
		processBody(resp.Body, nil)
	}
}

func (r *Client) postInetHTTP(method string, url string, data interface{}, processBody func(io.ReadCloser, error)) {
	req, err := r.createHTTPRequest(method, url, data)
	if err != nil {
		processBody(emptyReader, err)
		return
	}

	if r.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		processBody(emptyReader, fmt.Errorf("fail to send http request to qudi daemon: %s", err))
		return
	}
	r.processResponse(resp, processBody)
}

func (r *Client) postUnixHTTP(method string, path string, data interface{}, processBody func(io.ReadCloser, error)) {
	var conn net.Conn
	var err error
	if r.timeout > 0 {
		conn, err = net.DialTimeout("unix", path, r.timeout)
	} else {
		conn, err = net.Dial("unix", path)
	}
	if err != nil {
		processBody(emptyReader, fmt.Errorf("fail to connect unix socket path: %s. %s", r.serverurl, err))
		return
	}
	defer conn.Close()

	if r.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(r.timeout)); err != nil {
			processBody(emptyReader, err)
			return
		}
	}
	req, err := r.createHTTPRequest(method, "/RPC2", data)
	if err != nil {
		processBody(emptyReader, fmt.Errorf("fail to create http request. %s", err))
		return
	}
	err = req.Write(conn)
	if err != nil {
		processBody(emptyReader, fmt.Errorf("fail to write to unix socket %s", r.serverurl))
		return
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		processBody(emptyReader, fmt.Errorf("fail to read response %s", err))
		return
	}
	r.processResponse(resp, processBody)
}

func (r *Client) post(method string, data interface{}, processBody func(io.ReadCloser, error)) {
	myurl, err := url.Parse(r.serverurl)
	if err != nil {
		processBody(emptyReader, fmt.Errorf("malformed server url %q", r.serverurl))
		return
	}
	switch myurl.Scheme {
	case "http", "https":
		r.postInetHTTP(method, r.URL(), data, processBody)
	case "unix":
		r.postUnixHTTP(method, myurl.Path, data, processBody)
	default:
		processBody(emptyReader, fmt.Errorf("unsupported URL scheme: %s", myurl.Scheme))
	}
}

func (r *Client) call(method string, data interface{}, reply interface{}) error {
	var err error
	r.post(method, data, func(body io.ReadCloser, procError error) {
		err = procError
		if err == nil {
			err = xml.DecodeClientResponse(body, reply)
		}
	})
	return err
}

// GetVersion requests the software version of the daemon
func (r *Client) GetVersion() (reply VersionReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.getVersion", &ins, &reply)
	return
}

// GetIdentification requests the configured identifier of the daemon
func (r *Client) GetIdentification() (reply VersionReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.getIdentification", &ins, &reply)
	return
}

// GetPid requests the pid of the daemon
func (r *Client) GetPid() (reply PidReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.getPID", &ins, &reply)
	return
}

// GetAllModuleInfo requests the state of every managed module
func (r *Client) GetAllModuleInfo() (reply AllModuleInfoReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.getAllModuleInfo", &ins, &reply)
	return
}

// GetModuleInfo requests the state of one module
func (r *Client) GetModuleInfo(name string) (types.ModuleInfo, error) {
	ins := struct{ Name string }{name}
	var reply ModuleInfoReply
	err := r.call("qudi.getModuleInfo", &ins, &reply)
	return reply.Value, err
}

// ChangeModuleState requests to activate or deactivate a module
func (r *Client) ChangeModuleState(change string, moduleName string) (reply StateChangeReply, err error) {
	if change != "activate" && change != "deactivate" {
		err = fmt.Errorf("incorrect required state")
		return
	}
	ins := struct {
		Name string
		Wait bool
	}{moduleName, true}
	err = r.call(fmt.Sprintf("qudi.%sModule", change), &ins, &reply)
	return
}

// ChangeAllModulesState requests to activate or deactivate all modules
func (r *Client) ChangeAllModulesState(change string) (reply AllModuleInfoReply, err error) {
	if change != "activate" && change != "deactivate" {
		err = fmt.Errorf("incorrect required state")
		return
	}
	ins := struct{ Wait bool }{true}
	err = r.call(fmt.Sprintf("qudi.%sAllModules", change), &ins, &reply)
	return
}

// ReloadConfig requests a configuration reload
func (r *Client) ReloadConfig() (reply ReloadConfigReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.reloadConfig", &ins, &reply)
	return
}

// Shutdown requests the daemon to exit
func (r *Client) Shutdown() (reply ShutdownReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.shutdown", &ins, &reply)
	return
}

// Restart requests the daemon to restart
func (r *Client) Restart() (reply StateChangeReply, err error) {
	ins := struct{}{}
	err = r.call("qudi.restart", &ins, &reply)
	return
}

// CallModule forwards a method call to a module hosted by the daemon. Args
// is the JSON encoding of the argument list, the reply value is the JSON
// encoding of the results.
func (r *Client) CallModule(moduleName string, method string, argsJSON string) (reply CallReply, err error) {
	ins := struct {
		Name   string
		Method string
		Args   string
	}{moduleName, method, argsJSON}
	err = r.call("qudi.callModule", &ins, &reply)
	return
}
