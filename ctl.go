package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/rpcclient"
	"github.com/mvchalupnik/qudi/types"
)

type CtlCommand struct {
	ServerURL string `short:"s" long:"serverurl" description:"URL on which qudi daemon is listening"`
	User      string `short:"u" long:"user" description:"the user name"`
	Password  string `short:"P" long:"password" description:"the password"`
	Verbose   bool   `short:"v" long:"verbose" description:"Show verbose debug information"`
}

type StatusCommand struct {
}

type ActivateCommand struct {
}

type DeactivateCommand struct {
}

type RestartCommand struct {
}

type ShutdownCommand struct {
}

type ReloadCommand struct {
}

type PidCommand struct {
}

type CallCommand struct {
}

// A wrapper can be use to check whether
// number of parameters is valid or not
type CmdCheckWrapperCommand struct {
	// Original cmd
	cmd flags.Commander
	// leastNumArgs indicates how many arguments
	// this cmd should have at least
	leastNumArgs int
	// Print usage when arguments not valid
	usage string
}

var ctlCommand CtlCommand
var statusCommand = CmdCheckWrapperCommand{&StatusCommand{}, 0, ""}
var activateCommand = CmdCheckWrapperCommand{&ActivateCommand{}, 1, "activate <module>[...]"}
var deactivateCommand = CmdCheckWrapperCommand{&DeactivateCommand{}, 1, "deactivate <module>[...]"}
var restartCommand = CmdCheckWrapperCommand{&RestartCommand{}, 1, "restart <module>[...]"}
var shutdownCommand = CmdCheckWrapperCommand{&ShutdownCommand{}, 0, ""}
var reloadCommand = CmdCheckWrapperCommand{&ReloadCommand{}, 0, ""}
var pidCommand = CmdCheckWrapperCommand{&PidCommand{}, 0, ""}
var callCommand = CmdCheckWrapperCommand{&CallCommand{}, 2, "call <module> <method> [json_argument...]"}

func (x *CtlCommand) getGlobal(key string) string {
	options.Configuration, _ = findConfigFile()

	if _, err := os.Stat(options.Configuration); err == nil {
		cfg := config.NewConfig(options.Configuration)
		cfg.Load()
		return cfg.Global.GetString(key, "")
	}
	return ""
}

func (x *CtlCommand) getServerURL() string {
	if x.ServerURL != "" {
		return x.ServerURL
	}
	if serverurl := x.getGlobal("serverurl"); serverurl != "" {
		return serverurl
	}
	return "http://localhost:9001"
}

func (x *CtlCommand) getUser() string {
	if x.User != "" {
		return x.User
	}
	return x.getGlobal("rpc_username")
}

func (x *CtlCommand) getPassword() string {
	if x.Password != "" {
		return x.Password
	}
	return x.getGlobal("rpc_password")
}

func (x *CtlCommand) createRPCClient() *rpcclient.Client {
	rpcc := rpcclient.NewClient(x.getServerURL(), x.Verbose)
	rpcc.SetUser(x.getUser())
	rpcc.SetPassword(x.getPassword())
	return rpcc
}

func (x *CtlCommand) Execute(args []string) error {
	if len(args) == 0 {
		return nil
	}

	rpcc := x.createRPCClient()
	verb := args[0]

	switch verb {
	case "status":
		x.status(rpcc, args[1:])
	case "activate", "deactivate":
		x.changeModuleStates(rpcc, verb, args[1:])
	case "restart":
		x.restartModules(rpcc, args[1:])
	case "shutdown":
		x.shutdown(rpcc)
	case "reload":
		x.reload(rpcc)
	case "pid":
		x.getPid(rpcc)
	case "call":
		x.call(rpcc, args[1], args[2], args[3:])
	default:
		fmt.Println("unknown command")
	}

	return nil
}

// get the status of modules
func (x *CtlCommand) status(rpcc *rpcclient.Client, modules []string) {
	modulesMap := make(map[string]bool)
	for _, mod := range modules {
		modulesMap[mod] = true
	}
	if reply, err := rpcc.GetAllModuleInfo(); err == nil {
		x.showModuleInfo(&reply, modulesMap)
	} else {
		os.Exit(1)
	}
}

// activate or deactivate the modules
// verb must be: activate or deactivate
func (x *CtlCommand) changeModuleStates(rpcc *rpcclient.Client, verb string, modules []string) {
	state := map[string]string{
		"activate":   "activated",
		"deactivate": "deactivated",
	}
	x._changeModuleStates(rpcc, verb, modules, state[verb], true)
}

func (x *CtlCommand) _changeModuleStates(rpcc *rpcclient.Client, verb string, modules []string, state string, showModuleInfo bool) {
	if len(modules) <= 0 {
		fmt.Printf("Please specify module for %s\n", verb)
	}
	for _, mname := range modules {
		if mname == "all" {
			reply, err := rpcc.ChangeAllModulesState(verb)
			if err == nil {
				if showModuleInfo {
					x.showModuleInfo(&reply, make(map[string]bool))
				}
			} else {
				fmt.Printf("Fail to change all module states to %s", state)
			}
		} else {
			if reply, err := rpcc.ChangeModuleState(verb, mname); err == nil {
				if showModuleInfo {
					fmt.Printf("%s: ", mname)
					if !reply.Value {
						fmt.Printf("not ")
					}
					fmt.Printf("%s\n", state)
				}
			} else {
				fmt.Printf("%s: failed [%v]\n", mname, err)
				os.Exit(1)
			}
		}
	}
}

func (x *CtlCommand) restartModules(rpcc *rpcclient.Client, modules []string) {
	x._changeModuleStates(rpcc, "deactivate", modules, "deactivated", false)
	x._changeModuleStates(rpcc, "activate", modules, "restarted", true)
}

// shutdown the qudi daemon
func (x *CtlCommand) shutdown(rpcc *rpcclient.Client) {
	if reply, err := rpcc.Shutdown(); err == nil {
		if reply.Value {
			fmt.Printf("Shut Down\n")
		} else {
			fmt.Printf("Hmmm! Something gone wrong?!\n")
		}
	} else {
		os.Exit(1)
	}
}

// reload the configuration of the qudi daemon
func (x *CtlCommand) reload(rpcc *rpcclient.Client) {
	if reply, err := rpcc.ReloadConfig(); err == nil {
		if len(reply.AddedModules) > 0 {
			fmt.Printf("Added Modules: %s\n", strings.Join(reply.AddedModules, ","))
		}
		if len(reply.ChangedModules) > 0 {
			fmt.Printf("Changed Modules: %s\n", strings.Join(reply.ChangedModules, ","))
		}
		if len(reply.RemovedModules) > 0 {
			fmt.Printf("Removed Modules: %s\n", strings.Join(reply.RemovedModules, ","))
		}
	} else {
		os.Exit(1)
	}
}

// get the pid of the qudi daemon
func (x *CtlCommand) getPid(rpcc *rpcclient.Client) {
	reply, err := rpcc.GetPid()
	if err != nil {
		fmt.Printf("Fail to get the pid of the qudi daemon\n")
		os.Exit(1)
	}
	fmt.Printf("%d\n", reply.Pid)
}

// call a method on an active module. The arguments are given as individual
// JSON values, the result is printed as JSON.
func (x *CtlCommand) call(rpcc *rpcclient.Client, mname string, method string, args []string) {
	rawArgs := make([]json.RawMessage, 0, len(args))
	for _, arg := range args {
		if !json.Valid([]byte(arg)) {
			fmt.Printf("argument is not valid JSON: %s\n", arg)
			os.Exit(1)
		}
		rawArgs = append(rawArgs, json.RawMessage(arg))
	}
	argsJSON, err := json.Marshal(rawArgs)
	if err != nil {
		fmt.Printf("fail to encode arguments: %v\n", err)
		os.Exit(1)
	}
	reply, err := rpcc.CallModule(mname, method, string(argsJSON))
	if err != nil {
		fmt.Printf("%s.%s: failed [%v]\n", mname, method, err)
		os.Exit(1)
	}
	fmt.Printf("%s\n", reply.Value)
}

func (x *CtlCommand) showModuleInfo(reply *rpcclient.AllModuleInfoReply, modulesMap map[string]bool) {
	for _, minfo := range reply.Value {
		if x.inModuleMap(&minfo, modulesMap) {
			fmt.Printf("%s%-33s%-13s%s%s\n", x.getANSIColor(minfo.StateName), minfo.Name, minfo.StateName, minfo.Description, "\x1b[0m")
		}
	}
}

func (x *CtlCommand) inModuleMap(minfo *types.ModuleInfo, modulesMap map[string]bool) bool {
	if len(modulesMap) <= 0 {
		return true
	}
	for mname := range modulesMap {
		if mname == minfo.Name || mname == minfo.GetFullName() {
			return true
		}
	}
	return false
}

func (x *CtlCommand) getANSIColor(statename string) string {
	if statename == "Idle" || statename == "Running" {
		// green
		return "\x1b[0;32m"
	} else if statename == "Locked" {
		// red
		return "\x1b[0;31m"
	} else {
		// yellow
		return "\x1b[1;33m"
	}
}

func (sc *StatusCommand) Execute(args []string) error {
	ctlCommand.status(ctlCommand.createRPCClient(), args)
	return nil
}

func (ac *ActivateCommand) Execute(args []string) error {
	ctlCommand.changeModuleStates(ctlCommand.createRPCClient(), "activate", args)
	return nil
}

func (dc *DeactivateCommand) Execute(args []string) error {
	ctlCommand.changeModuleStates(ctlCommand.createRPCClient(), "deactivate", args)
	return nil
}

func (rc *RestartCommand) Execute(args []string) error {
	ctlCommand.restartModules(ctlCommand.createRPCClient(), args)
	return nil
}

func (sc *ShutdownCommand) Execute(args []string) error {
	ctlCommand.shutdown(ctlCommand.createRPCClient())
	return nil
}

func (rc *ReloadCommand) Execute(args []string) error {
	ctlCommand.reload(ctlCommand.createRPCClient())
	return nil
}

func (pc *PidCommand) Execute(args []string) error {
	ctlCommand.getPid(ctlCommand.createRPCClient())
	return nil
}

func (cc *CallCommand) Execute(args []string) error {
	ctlCommand.call(ctlCommand.createRPCClient(), args[0], args[1], args[2:])
	return nil
}

func (wc *CmdCheckWrapperCommand) Execute(args []string) error {
	if len(args) < wc.leastNumArgs {
		err := fmt.Errorf("Invalid arguments.\nUsage: qudi ctl %v", wc.usage)
		fmt.Printf("%v\n", err)
		return err
	}
	return wc.cmd.Execute(args)
}

func init() {
	ctlCmd, _ := parser.AddCommand("ctl",
		"Control a running daemon",
		"The ctl subcommand controls the modules of a running qudi daemon.",
		&ctlCommand)
	ctlCmd.AddCommand("status",
		"show module status",
		"show all or some module status",
		&statusCommand)
	ctlCmd.AddCommand("activate",
		"activate modules",
		"activate one or more modules",
		&activateCommand)
	ctlCmd.AddCommand("deactivate",
		"deactivate modules",
		"deactivate one or more modules",
		&deactivateCommand)
	ctlCmd.AddCommand("restart",
		"restart modules",
		"restart one or more modules",
		&restartCommand)
	ctlCmd.AddCommand("shutdown",
		"shutdown the qudi daemon",
		"shutdown the qudi daemon",
		&shutdownCommand)
	ctlCmd.AddCommand("reload",
		"reload the configuration",
		"reload the configuration",
		&reloadCommand)
	ctlCmd.AddCommand("pid",
		"get the pid of the qudi daemon",
		"get the pid of the qudi daemon",
		&pidCommand)
	ctlCmd.AddCommand("call",
		"call a method on an active module",
		"call a method on an active module with JSON arguments",
		&callCommand)
}
