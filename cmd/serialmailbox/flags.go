package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/luhtfiimanal/go-serial-mailbox/internal/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	Device      string
	BaudRate    int
	Capacity    int
	LogLevel    string
	Echo        bool
	Stdin       bool
	ShowVersion bool
	Validate    bool
}

func parseFlags(args []string) (*CLIConfig, error) {
	cli := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cli.ConfigPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"),
		"Path to YAML configuration file (env: "+config.EnvPrefix+"CONFIG)")
	fs.StringVar(&cli.Device, "device", "", "Serial device, overrides config")
	fs.IntVar(&cli.BaudRate, "baud", 0, "Baud rate, overrides config")
	fs.IntVar(&cli.Capacity, "capacity", 0, "Per-consumer queue capacity in lines, overrides config")
	fs.StringVar(&cli.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&cli.Echo, "echo", false, "Log every received line")
	fs.BoolVar(&cli.Stdin, "stdin", false, "Write lines read from stdin to the serial port")
	fs.BoolVar(&cli.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cli.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "%s - share one serial line between many consumers\n\nUsage:\n", appName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cli, nil
}

// apply overrides cfg with the flags that were set.
func (c *CLIConfig) apply(cfg *config.Config) {
	if c.Device != "" {
		cfg.Serial.Device = c.Device
	}
	if c.BaudRate != 0 {
		cfg.Serial.BaudRate = c.BaudRate
	}
	if c.Capacity != 0 {
		cfg.Mailbox.Capacity = c.Capacity
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.Echo {
		cfg.Mailbox.Echo = true
	}
}
