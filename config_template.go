package main

import (
	"io"
	"os"
)

var configTemplate = `global:
  identifier: qudi
  serverurl: http://localhost:9001
  rpc_port: 127.0.0.1:9001
  rpc_socket: /tmp/qudi.sock
  rpc_username: test1
  rpc_password: "{SHA}82ab876d1387bfafe46cc1c8a2ef074eae50cb1d"
  loglevel: debug
  # logfile: /var/log/qudi.log
  startup:
    - counterlogic

hardware:
  rng:
    module.Class: hardware.rng.RNG
    mean: 42.0
    noise: 0.1

  daq:
    module.Class: hardware.counter.Card
    counter_channels:
      - ctr0
      - ctr1
      - ctr2
      - ctr3
    edge_rate: 1000000

logic:
  rnglogic:
    module.Class: logic.rnglogic.RNGLogic
    update_rate: 1
    samples_number: 10
    autoactivate: true
    connect:
      rng: rng

  remoterng:
    remote: xmlrpc://remotehost:9001/rng

  counterlogic:
    module.Class: logic.counterlogic.CounterLogic
    clock_channel: ctr0
    counter_channel: ctr1
    clock_frequency: 50
    window_size: 300
    connect:
      counter: daq

gui:
  rnggui:
    module.Class: gui.rng.RNGGui
    connect:
      rnglogic: rnglogic
`

// InitTemplateCommand implemnts flags.Commander interface
type InitTemplateCommand struct {
	OutFile string `short:"o" long:"output" description:"the output file name" required:"true"`
}

var initTemplateCommand InitTemplateCommand

// Execute execute the init command
func (x *InitTemplateCommand) Execute(args []string) error {
	f, err := os.Create(x.OutFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return GenTemplate(f)
}

// GenTemplate generate the template
func GenTemplate(writer io.Writer) error {
	_, err := writer.Write([]byte(configTemplate))
	return err
}

func init() {
	parser.AddCommand("init",
		"initialize a template",
		"The init subcommand writes a template configuration to the specified file",
		&initTemplateCommand)
}
