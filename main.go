package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	// instrument and logic module registration
	_ "github.com/mvchalupnik/qudi/hardware/counter"
	_ "github.com/mvchalupnik/qudi/hardware/rng"
	_ "github.com/mvchalupnik/qudi/logic/counterlogic"
	_ "github.com/mvchalupnik/qudi/logic/rnglogic"
)

type Options struct {
	Configuration string `short:"c" long:"configuration" description:"the configuration file" default:"qudi.cfg"`
	Daemon        bool   `short:"d" long:"daemon" description:"run as daemon"`
}

func init() {
	log.SetOutput(os.Stdout)
	if runtime.GOOS == "windows" {
		log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true})
	}
	log.SetLevel(log.DebugLevel)
}

func initSignals(q *Qudi) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.WithFields(log.Fields{"signal": sig}).Info("receive a signal to deactivate all modules & exit")
		q.GetManager().DeactivateAll()
		os.Exit(-1)
	}()
}

var options Options
var parser = flags.NewParser(&options, flags.Default & ^flags.PrintErrors)

func RunServer() {
	// infinite loop for handling Restart ('reload' command)
	for {
		q := NewQudi(options.Configuration)
		initSignals(q)
		if _, err := q.Reload(); err != nil {
			panic(err)
		}
		q.WaitForExit()
	}
}

func main() {
	if _, err := parser.Parse(); err != nil {
		flagsErr, ok := err.(*flags.Error)
		if ok {
			switch flagsErr.Type {
			case flags.ErrHelp:
				fmt.Fprintln(os.Stdout, err)
				os.Exit(0)
			case flags.ErrCommandRequired:
				if options.Daemon {
					Deamonize(RunServer)
				} else {
					RunServer()
				}
			default:
				panic(err)
			}
		}
	}
}
