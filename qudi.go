package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/faults"
	"github.com/mvchalupnik/qudi/module"
	"github.com/mvchalupnik/qudi/remote"
	"github.com/mvchalupnik/qudi/types"
	"github.com/mvchalupnik/qudi/util"
	log "github.com/sirupsen/logrus"
)

// APIVersion is the version of the XML-RPC interface
const APIVersion = "3.0"

// Qudi manages all the modules declared in the configuration file. The
// public XML-RPC interface of the daemon is defined on this type.
type Qudi struct {
	config     *config.Config
	modMgr     *module.Manager
	xmlRPC     *XMLRPC
	restarting bool
}

// StateChangeArgs arguments for activating or deactivating a module
type StateChangeArgs struct {
	Name string
	Wait bool `default:"true"`
}

// CallArgs arguments of a forwarded module method call. Args holds the
// JSON-encoded argument list.
type CallArgs struct {
	Name   string
	Method string
	Args   string
}

// StateInfo describes the state of the qudi daemon
type StateInfo struct {
	Statecode int    `xml:"statecode"`
	Statename string `xml:"statename"`
}

// NewQudi creates a Qudi object with the given configuration file
func NewQudi(configFile string) *Qudi {
	return &Qudi{
		config:     config.NewConfig(configFile),
		modMgr:     module.NewManager(),
		xmlRPC:     NewXMLRPC(),
		restarting: false,
	}
}

// GetIdentifier returns the daemon identifier from the configuration file
func (q *Qudi) GetIdentifier() string {
	return q.config.Global.GetString("identifier", "qudi")
}

// GetManager returns the module manager created by the daemon
func (q *Qudi) GetManager() *module.Manager {
	return q.modMgr
}

// GetVersion returns the daemon version
func (q *Qudi) GetVersion(r *http.Request, args *struct{}, reply *struct{ Value string }) error {
	reply.Value = Version
	return nil
}

// GetAPIVersion returns the version of the RPC interface
func (q *Qudi) GetAPIVersion(r *http.Request, args *struct{}, reply *struct{ Value string }) error {
	reply.Value = APIVersion
	return nil
}

// GetIdentification returns the daemon identifier
func (q *Qudi) GetIdentification(r *http.Request, args *struct{}, reply *struct{ Value string }) error {
	reply.Value = q.GetIdentifier()
	return nil
}

// GetState returns the state of the daemon
func (q *Qudi) GetState(r *http.Request, args *struct{}, reply *struct{ StateInfo StateInfo }) error {
	reply.StateInfo = StateInfo{Statecode: 1, Statename: "RUNNING"}
	return nil
}

// GetPID returns the pid of the daemon
func (q *Qudi) GetPID(r *http.Request, args *struct{}, reply *struct{ Pid int }) error {
	reply.Pid = os.Getpid()
	return nil
}

func getModuleInfo(m *module.Managed) *types.ModuleInfo {
	d := m.Descriptor()
	info := &types.ModuleInfo{
		Name:           m.GetName(),
		Base:           d.Base,
		Class:          d.Class,
		RemoteURL:      d.RemoteURL,
		Description:    d.GetString("description", ""),
		ActivationTime: m.ActivationTime().Unix(),
		Now:            time.Now().Unix(),
		State:          int64(m.State()),
		StateName:      m.State().String(),
	}
	if err := m.LastError(); err != nil {
		info.LastError = err.Error()
	}
	return info
}

// GetAllModuleInfo returns the state of every configured module
func (q *Qudi) GetAllModuleInfo(r *http.Request, args *struct{}, reply *struct{ AllModuleInfo []types.ModuleInfo }) error {
	var infos types.ModuleInfos
	q.modMgr.ForEachModule(func(m *module.Managed) {
		infos = append(infos, *getModuleInfo(m))
	})
	infos.SortByName()
	reply.AllModuleInfo = infos
	return nil
}

// GetModuleInfo returns the state of one module
func (q *Qudi) GetModuleInfo(r *http.Request, args *struct{ Name string }, reply *struct{ ModInfo types.ModuleInfo }) error {
	m := q.modMgr.Find(args.Name)
	if m == nil {
		return faults.NewFault(faults.BAD_NAME, fmt.Sprintf("no such module %s", args.Name))
	}
	reply.ModInfo = *getModuleInfo(m)
	return nil
}

// ActivateModule activates a module and its dependencies
func (q *Qudi) ActivateModule(r *http.Request, args *StateChangeArgs, reply *struct{ Success bool }) error {
	log.WithFields(log.Fields{"module": args.Name}).Info("activate module")
	if q.modMgr.Find(args.Name) == nil {
		return faults.NewFault(faults.BAD_NAME, fmt.Sprintf("no such module %s", args.Name))
	}
	if !args.Wait {
		go func() {
			if err := q.modMgr.Activate(args.Name); err != nil {
				log.WithFields(log.Fields{"module": args.Name, log.ErrorKey: err}).Error("fail to activate module")
			}
		}()
		reply.Success = true
		return nil
	}
	err := q.modMgr.Activate(args.Name)
	reply.Success = err == nil
	return err
}

// DeactivateModule deactivates a module together with its dependents
func (q *Qudi) DeactivateModule(r *http.Request, args *StateChangeArgs, reply *struct{ Success bool }) error {
	log.WithFields(log.Fields{"module": args.Name}).Info("deactivate module")
	if q.modMgr.Find(args.Name) == nil {
		return faults.NewFault(faults.BAD_NAME, fmt.Sprintf("no such module %s", args.Name))
	}
	if !args.Wait {
		go func() {
			if err := q.modMgr.Deactivate(args.Name); err != nil {
				log.WithFields(log.Fields{"module": args.Name, log.ErrorKey: err}).Error("fail to deactivate module")
			}
		}()
		reply.Success = true
		return nil
	}
	err := q.modMgr.Deactivate(args.Name)
	reply.Success = err == nil
	return err
}

// ActivateAllModules activates every hardware and logic module
func (q *Qudi) ActivateAllModules(r *http.Request, args *struct{ Wait bool }, reply *struct{ AllModuleInfo []types.ModuleInfo }) error {
	q.modMgr.ActivateAll()
	return q.GetAllModuleInfo(r, nil, reply)
}

// DeactivateAllModules deactivates every active module
func (q *Qudi) DeactivateAllModules(r *http.Request, args *struct{ Wait bool }, reply *struct{ AllModuleInfo []types.ModuleInfo }) error {
	q.modMgr.DeactivateAll()
	return q.GetAllModuleInfo(r, nil, reply)
}

// CallModule forwards a method call to an active module. Calls on modules
// hosted by another daemon are forwarded there.
func (q *Qudi) CallModule(r *http.Request, args *CallArgs, reply *struct{ Value string }) error {
	m := q.modMgr.Find(args.Name)
	if m == nil {
		return faults.NewFault(faults.BAD_NAME, fmt.Sprintf("no such module %s", args.Name))
	}
	if !m.IsActivated() {
		return faults.NewFault(faults.NOT_ACTIVE, fmt.Sprintf("module %s is not active", args.Name))
	}
	if proxy, ok := m.Instance().(*remote.Proxy); ok {
		value, err := proxy.CallRaw(args.Method, args.Args)
		reply.Value = value
		return err
	}
	value, err := remote.Dispatch(m.Instance(), args.Method, args.Args)
	reply.Value = value
	return err
}

// ReloadConfig reloads the configuration file
func (q *Qudi) ReloadConfig(r *http.Request, args *struct{}, reply *types.ReloadConfigResult) error {
	log.Info("start to reload configuration")
	result, err := q.Reload()
	if err != nil {
		log.WithError(err).Error("fail to reload configuration")
		return err
	}
	*reply = result
	return nil
}

// Shutdown deactivates all modules and stops the daemon
func (q *Qudi) Shutdown(r *http.Request, args *struct{}, reply *struct{ Ret bool }) error {
	reply.Ret = true
	log.Info("received rpc request to stop all modules & exit")
	q.modMgr.DeactivateAll()
	go func() {
		time.Sleep(1 * time.Second)
		os.Exit(0)
	}()
	return nil
}

// Restart restarts the daemon
func (q *Qudi) Restart(r *http.Request, args *struct{}, reply *struct{ Ret bool }) error {
	log.Info("restart requested")
	q.restarting = true
	reply.Ret = true
	return nil
}

// IsRestarting checks if the daemon is in restarting state
func (q *Qudi) IsRestarting() bool {
	return q.restarting
}

// Reload reads the configuration file again, creates the modules it
// declares, removes the modules it no longer declares and activates the
// autoactivate ones
func (q *Qudi) Reload() (types.ReloadConfigResult, error) {
	prevModules := q.config.ModuleNames()

	loadedModules, err := q.config.Load()
	if err == nil {
		q.setupLogger()
		q.modMgr.SetRemoteAuth(q.config.Global.GetString("rpc_username", ""), q.config.Global.GetString("rpc_password", ""))
		err = q.createModules()
		q.startHTTPServer()
		q.modMgr.ActivateAutoStart()
		q.activateStartupModules()
	}

	result := types.ReloadConfigResult{
		AddedModules:   util.Sub(loadedModules, prevModules),
		RemovedModules: util.Sub(prevModules, loadedModules),
	}
	for _, removed := range result.RemovedModules {
		log.WithFields(log.Fields{"module": removed}).Info("removed from configuration, deactivating")
		q.config.RemoveModule(removed)
		if m := q.modMgr.Find(removed); m != nil {
			if m.IsActivated() {
				q.modMgr.Deactivate(removed)
			}
			q.modMgr.Remove(removed)
		}
	}
	return result, err
}

func (q *Qudi) createModules() error {
	errs := &config.ErrList{}
	for _, d := range q.config.Modules() {
		if prev := q.modMgr.Find(d.Name); prev != nil {
			if prev.IsActivated() {
				continue
			}
			q.modMgr.Remove(d.Name)
		}
		if _, err := q.modMgr.CreateModule(d); err != nil {
			log.WithFields(log.Fields{"module": d.GetFullName()}).WithError(err).Error("fail to create module")
			errs.Add(err)
		}
	}
	return errs.Err()
}

// activateStartupModules activates the modules named in the global startup
// list, in addition to the ones with their own autoactivate option
func (q *Qudi) activateStartupModules() {
	for _, name := range q.config.Global.GetStringArray("startup") {
		if err := q.modMgr.Activate(name); err != nil {
			log.WithFields(log.Fields{"module": name, log.ErrorKey: err}).Error("fail to activate startup module")
		}
	}
}

// setupLogger applies the log level and log file from the global section
func (q *Qudi) setupLogger() {
	if level, err := log.ParseLevel(q.config.Global.GetString("loglevel", "debug")); err == nil {
		log.SetLevel(level)
	}
	if logFile := q.config.Global.GetString("logfile", ""); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithFields(log.Fields{"file": logFile, log.ErrorKey: err}).Error("fail to open log file")
			return
		}
		log.SetOutput(f)
	}
}

func (q *Qudi) startHTTPServer() {
	q.xmlRPC.Stop()

	addr := q.config.Global.GetString("rpc_port", "")
	if addr != "" {
		go q.xmlRPC.StartInetHTTPServer(q.config.Global.GetString("rpc_username", ""), q.config.Global.GetString("rpc_password", ""), addr, q)
	}
	sockFile := q.config.Global.GetString("rpc_socket", "")
	if sockFile != "" {
		go q.xmlRPC.StartUnixHTTPServer(q.config.Global.GetString("rpc_username", ""), q.config.Global.GetString("rpc_password", ""), sockFile, q)
	}
}

// WaitForExit waits for the daemon to exit
func (q *Qudi) WaitForExit() {
	for {
		if q.IsRestarting() {
			q.modMgr.DeactivateAll()
			q.xmlRPC.Stop()
			break
		}
		time.Sleep(1 * time.Second)
	}
}

func findConfigFile() (string, error) {
	possibleFiles := []string{
		"qudi.cfg",
		filepath.Join(os.Getenv("HOME"), ".qudi", "qudi.cfg"),
		"/etc/qudi/qudi.cfg",
	}
	for _, file := range possibleFiles {
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}
	return "", fmt.Errorf("fail to find configuration file")
}
