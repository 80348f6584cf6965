package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/binclock/pkg/binclock"
	fx "github.com/robotalks/binclock/pkg/framework"
	"github.com/robotalks/binclock/pkg/remote"
	"github.com/robotalks/binclock/pkg/serial"
)

func init() {
	binclock.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := binclock.NewConfig()
	b, err := conf.OpenBoard()
	if err != nil {
		glog.Fatalln(err)
	}
	port, err := serial.Open(conf.Port, conf.BaudRate)
	if err != nil {
		glog.Fatalln(err)
	}

	lines := serial.NewLineReader(port, conf.QueueSize)
	ctl := conf.NewController(b)
	ctl.Lines = lines
	ctl.Console = serial.NewConsole(port)
	loop := conf.NewLoop().Add(ctl)

	if conf.MQTTBrokerURL != "" {
		id := conf.ID
		if id == "" {
			if id, err = remote.DeviceID(); err != nil {
				glog.Fatalf("device id: %v", err)
			}
		}
		bridge, err := remote.NewBridge(conf.MQTTBrokerURL, id, lines)
		if err != nil {
			glog.Fatalln(err)
		}
		ctl.OnStatus = bridge.Publish
		loop.AddRunnable(bridge)
		glog.Infof("remote sync on %s%s", bridge.Queue.TopicPrefix, bridge.Topic(remote.TopicSync))
	}

	if err = ctl.Greet(); err != nil {
		glog.Warningf("banner: %v", err)
	}
	glog.Infof("binclock on %s at %d baud", conf.Port, conf.BaudRate)
	if err = fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Fatalln(err)
	}
}
