// Package sh provides the interactive console used to set a binary clock.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/binclock/pkg/binclock"
	"github.com/robotalks/binclock/pkg/remote"
	"github.com/robotalks/binclock/pkg/serial"
	"github.com/robotalks/binclock/pkg/timesync"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// ReplyTimeout bounds waiting for a response of the clock.
	ReplyTimeout time.Duration
	// Now is the time sent by the now command.
	Now func() time.Time

	Shell  *ishell.Shell
	Config *binclock.Config
	Link   Link
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// DefaultReplyTimeout is the default of Shell.ReplyTimeout.
	DefaultReplyTimeout = 2 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	useMQTT    bool

	commands = []*ishell.Cmd{
		&PortsCmd,
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SyncCmd,
		&NowCmd,
		&RawCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	conf := binclock.Default()
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&useMQTT, "remote", useMQTT, "Connect through the MQTT broker instead of the serial port.")
	flag.StringVar(&conf.Port, "port", conf.Port, "Serial port")
	flag.IntVar(&conf.BaudRate, "baud", conf.BaudRate, "Serial baud rate")
	flag.StringVar(&conf.MQTTBrokerURL, "mqtt", conf.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&conf.ID, "id", conf.ID, "Device ID")
}

// New creates a new shell.
func New(conf *binclock.Config) *Shell {
	s := &Shell{
		Interactive:  !evalOnly,
		OutputJSON:   outputJSON,
		ReplyTimeout: DefaultReplyTimeout,
		Now:          time.Now,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Attach makes link the current connection.
func (s *Shell) Attach(link Link) {
	s.Disconnect()
	s.Link = link
	s.setPrompt(fmt.Sprintf("%s > ", link.Name()))
}

// ConnectSerial opens a serial port.
func (s *Shell) ConnectSerial(port string) error {
	link, err := OpenSerial(port, s.Config.BaudRate)
	if err != nil {
		return err
	}
	s.Attach(link)
	return nil
}

// ConnectRemote connects a device through the MQTT broker.
func (s *Shell) ConnectRemote(id string) error {
	if s.Config.MQTTBrokerURL == "" {
		return fmt.Errorf("MQTT broker URL is not set")
	}
	link, err := DialMQTT(s.Config.MQTTBrokerURL, id)
	if err != nil {
		return err
	}
	s.Attach(link)
	return nil
}

// Disconnect closes current connection.
func (s *Shell) Disconnect() {
	if s.Link != nil {
		s.Link.Close()
		s.Link = nil
		s.setPrompt(unconnectedPrompt)
	}
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Send sends a line and waits for the response.
func (s *Shell) Send(line string) (*remote.ClockStatus, error) {
	if s.Link == nil {
		return nil, fmt.Errorf("not connected")
	}
	if err := s.Link.Send(line); err != nil {
		return nil, err
	}
	timeout := s.ReplyTimeout
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		status, err := s.Link.Receive(ctx)
		if err == context.DeadlineExceeded {
			return nil, fmt.Errorf("no response")
		}
		if err != nil {
			return nil, err
		}
		// skip the banner printed on reset.
		if status.Message == timesync.Banner {
			continue
		}
		return status, nil
	}
}

// FormatTime formats t as an HHMM command.
func FormatTime(t time.Time) string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

// FormatStatus formats a response for display.
func (s *Shell) FormatStatus(status *remote.ClockStatus) (string, error) {
	if s.OutputJSON {
		out, err := json.Marshal(status)
		return string(out), err
	}
	return status.Message, nil
}

func (s *Shell) sendAndPrint(c *ishell.Context, line string) {
	status, err := s.Send(line)
	if err != nil {
		c.Err(err)
		return
	}
	out, err := s.FormatStatus(status)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(out)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if useMQTT {
		if err := s.ConnectRemote(s.Config.ID); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.ID, err)
		}
	} else if s.Config.Port != "" && (len(args) > 0 || !s.Interactive) {
		if err := s.ConnectSerial(s.Config.Port); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Port, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "list serial ports",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// DiscoverCmd lists devices announced on the MQTT broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list devices on the MQTT broker",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Config.MQTTBrokerURL == "" {
				c.Err(fmt.Errorf("MQTT broker URL is not set"))
				return
			}
			devices, err := remote.Discover(context.Background(), s.Config.MQTTBrokerURL, 0)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if devices == nil {
					devices = []*remote.DeviceMeta{}
				}
				out, err := json.Marshal(devices)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(devices) == 0 {
				c.Println("No devices found")
				return
			}
			for _, dev := range devices {
				c.Printf("%s: version %s\n", dev.ID, dev.Version)
			}
		},
	}

	// ConnectCmd connects a clock.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "serial [PORT] | remote [ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("serial or remote expected"))
				return
			}
			var err error
			switch c.Args[0] {
			case "serial":
				port := s.Config.Port
				if len(c.Args) > 1 {
					port = c.Args[1]
				}
				err = s.ConnectSerial(port)
			case "remote":
				id := s.Config.ID
				if len(c.Args) > 1 {
					id = c.Args[1]
				}
				err = s.ConnectRemote(id)
			default:
				err = fmt.Errorf("unknown link %q", c.Args[0])
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current clock.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SyncCmd sets the clock.
	SyncCmd = ishell.Cmd{
		Name:    "sync",
		Aliases: []string{"s"},
		Help:    "HHMM",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("HHMM expected"))
				return
			}
			ShellFrom(c).sendAndPrint(c, c.Args[0])
		},
	}

	// NowCmd sets the clock to the local time.
	NowCmd = ishell.Cmd{
		Name: "now",
		Help: "set the clock to the local time",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.sendAndPrint(c, FormatTime(s.Now()))
		},
	}

	// RawCmd sends a line as it is.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "LINE",
		Func: func(c *ishell.Context) {
			ShellFrom(c).sendAndPrint(c, strings.Join(c.Args, " "))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(binclock.NewConfig()).Run(flag.Args()...)
}
