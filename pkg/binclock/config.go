package binclock

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/golang/glog"

	"github.com/robotalks/binclock/pkg/board"
	fx "github.com/robotalks/binclock/pkg/framework"
	"github.com/robotalks/binclock/pkg/serial"
)

// Config defines the configurations of the clock.
type Config struct {
	Port      string        `env:"BINCLOCK_PORT"`
	BaudRate  int           `env:"BINCLOCK_BAUD"`
	Tick      time.Duration `env:"BINCLOCK_TICK"`
	Layout    string        `env:"BINCLOCK_LAYOUT"`
	Lenient   bool          `env:"BINCLOCK_LENIENT"`
	QueueSize int           `env:"BINCLOCK_QUEUE"`

	// MQTTBrokerURL enables the remote bridge when set,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `env:"BINCLOCK_MQTT_URL"`
	ID            string `env:"BINCLOCK_ID"`
}

var defaultConfig = Config{
	Port:      "/dev/ttyUSB0",
	BaudRate:  serial.DefaultBaudRate,
	Tick:      fx.DefaultInterval,
	QueueSize: serial.DefaultQueueSize,
}

func init() {
	if err := LoadEnv(&defaultConfig); err != nil {
		glog.Warningf("environment: %v", err)
	}
}

// LoadEnv overrides conf with BINCLOCK_* environment variables.
func LoadEnv(conf *Config) error {
	return env.Parse(conf)
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.DurationVar(&defaultConfig.Tick, "tick", defaultConfig.Tick, "Loop period")
	flag.StringVar(&defaultConfig.Layout, "layout", defaultConfig.Layout, "Board layout YAML file, reference wiring if empty")
	flag.BoolVar(&defaultConfig.Lenient, "lenient", defaultConfig.Lenient, "Convert non-digit input leniently instead of rejecting it")
	flag.IntVar(&defaultConfig.QueueSize, "queue", defaultConfig.QueueSize, "Number of received lines buffered")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, remote sync disabled if empty")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Device ID used in MQTT topics, machine ID if empty")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenBoard loads the layout and resolves its pins on the host.
func (c *Config) OpenBoard() (*board.Board, error) {
	layout, err := board.Load(c.Layout)
	if err != nil {
		return nil, fmt.Errorf("load layout: %v", err)
	}
	if err = board.InitHost(); err != nil {
		return nil, err
	}
	return layout.Open(nil)
}

// NewController creates a controller on the board using the config.
func (c *Config) NewController(b *board.Board) *Controller {
	ctl := NewController(b, nil)
	ctl.Parser.Lenient = c.Lenient
	return ctl
}

// NewLoop creates a Loop ticking at the configured period.
func (c *Config) NewLoop() *fx.Loop {
	loop := fx.NewLoop()
	loop.Interval = c.Tick
	return loop
}
