// pulsectl is the control tool for the pulse generator board. It speaks the
// 5-byte frame protocol over a serial port (or a pulsesim TCP endpoint),
// applies named profiles from a YAML config, and can publish readback
// telemetry over MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"github.com/urfave/cli"

	"gopulse/host/config"
	"gopulse/host/device"
	"gopulse/host/serial"
	"gopulse/host/telemetry"
	"gopulse/protocol"
)

func main() {
	// glog registers its flags on the standard flag set
	flag.CommandLine.Parse([]string{})

	app := cli.NewApp()
	app.Name = "pulsectl"
	app.Usage = "control a bipolar pulse generator board"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "port, p",
			Usage: "serial device or tcp:host:port for a simulator",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a YAML config file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "set",
			Usage: "program one channel's period",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "channel", Value: "fast", Usage: "fast (µs) or slow (ms)"},
				cli.UintFlag{Name: "value", Usage: "period in channel units"},
				cli.UintFlag{Name: "flags", Usage: "flags byte stored with the period"},
			},
			Action: cmdSet,
		},
		{
			Name:  "start",
			Usage: "start pulse generation",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "cycles", Usage: "run target recorded by the firmware (0 = endless)"},
			},
			Action: cmdStart,
		},
		{
			Name:  "stop",
			Usage: "stop pulse generation at the next cycle boundary",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "hard", Usage: "kill the output immediately instead"},
			},
			Action: cmdStop,
		},
		{
			Name:   "readback",
			Usage:  "query the stored period and flags of both channels",
			Action: cmdReadback,
		},
		{
			Name:      "apply",
			Usage:     "apply a named profile from the config file",
			ArgsUsage: "<profile>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "start", Usage: "start generation after applying"},
			},
			Action: cmdApply,
		},
		{
			Name:   "monitor",
			Usage:  "publish periodic readback telemetry over MQTT",
			Action: cmdMonitor,
		},
		{
			Name:   "console",
			Usage:  "interactive console",
			Action: cmdConsole,
		},
	}

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("%v", err)
		os.Exit(1)
	}
}

// loadConfig merges the optional config file with the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if port := c.GlobalString("port"); port != "" {
		cfg.Device.Port = port
	}
	return cfg, nil
}

func connect(c *cli.Context) (*device.Device, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	dev := device.New()
	err = dev.ConnectWithConfig(&serial.Config{
		Device:      cfg.Device.Port,
		Baud:        cfg.Device.Baud,
		ReadTimeout: cfg.Device.TimeoutMs,
	})
	if err != nil {
		return nil, nil, err
	}
	return dev, cfg, nil
}

func parseChannel(s string) (protocol.Channel, error) {
	switch s {
	case "fast":
		return protocol.ChannelFast, nil
	case "slow":
		return protocol.ChannelSlow, nil
	}
	return 0, fmt.Errorf("unknown channel %q (want fast or slow)", s)
}

func cmdSet(c *cli.Context) error {
	ch, err := parseChannel(c.String("channel"))
	if err != nil {
		return err
	}
	value := c.Uint("value")
	if value > 0xFFFF {
		return fmt.Errorf("value %d does not fit in 16 bits", value)
	}

	dev, _, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	return dev.Set(ch, uint16(value), uint8(c.Uint("flags")))
}

func cmdStart(c *cli.Context) error {
	cycles := c.Uint("cycles")
	if cycles > 0xFFFF {
		return fmt.Errorf("cycles %d does not fit in 16 bits", cycles)
	}

	dev, _, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	return dev.Start(uint16(cycles))
}

func cmdStop(c *cli.Context) error {
	dev, _, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	return dev.Stop(c.Bool("hard"))
}

func cmdReadback(c *cli.Context) error {
	dev, _, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	return printReadback(dev, os.Stdout)
}

func printReadback(dev *device.Device, w io.Writer) error {
	for _, ch := range []protocol.Channel{protocol.ChannelFast, protocol.ChannelSlow} {
		period, flags, err := dev.Readback(ch)
		if err != nil {
			return fmt.Errorf("readback %s: %w", ch, err)
		}
		units := "us"
		if ch == protocol.ChannelSlow {
			units = "ms"
		}
		fmt.Fprintf(w, "%s: period=%d %s flags=0x%02X\n", ch, period, units, flags)
	}
	return nil
}

func cmdApply(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("usage: pulsectl apply <profile>")
	}

	dev, cfg, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	profile, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("no profile %q in config", name)
	}

	if err := dev.Set(protocol.ChannelFast, profile.FastUS, profile.Flags); err != nil {
		return err
	}
	if err := dev.Set(protocol.ChannelSlow, profile.SlowMS, profile.Flags); err != nil {
		return err
	}
	glog.Infof("applied profile %q: fast=%dµs slow=%dms", name, profile.FastUS, profile.SlowMS)

	if c.Bool("start") {
		return dev.Start(profile.Cycles)
	}
	return nil
}

func cmdMonitor(c *cli.Context) error {
	dev, cfg, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	pub, err := telemetry.NewPublisher(cfg.Telemetry, dev)
	if err != nil {
		return err
	}
	defer pub.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	glog.Infof("publishing to %s every %dms", cfg.Telemetry.Broker, cfg.Telemetry.IntervalMs)
	if err := pub.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func cmdConsole(c *cli.Context) error {
	dev, cfg, err := connect(c)
	if err != nil {
		return err
	}
	defer dev.Close()

	shell := ishell.New()
	shell.Println("pulsectl console, type 'help' for commands")
	shell.SetPrompt(cfg.Device.Port + " > ")

	shell.AddCmd(&ishell.Cmd{
		Name: "set",
		Help: "set <fast|slow> <value> [flags]",
		Func: func(ic *ishell.Context) {
			if len(ic.Args) < 2 {
				ic.Err(errors.New("usage: set <fast|slow> <value> [flags]"))
				return
			}
			ch, err := parseChannel(ic.Args[0])
			if err != nil {
				ic.Err(err)
				return
			}
			value, err := strconv.ParseUint(ic.Args[1], 10, 16)
			if err != nil {
				ic.Err(err)
				return
			}
			var flags uint64
			if len(ic.Args) > 2 {
				if flags, err = strconv.ParseUint(ic.Args[2], 0, 8); err != nil {
					ic.Err(err)
					return
				}
			}
			if err := dev.Set(ch, uint16(value), uint8(flags)); err != nil {
				ic.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "start [cycles]",
		Func: func(ic *ishell.Context) {
			var cycles uint64
			var err error
			if len(ic.Args) > 0 {
				if cycles, err = strconv.ParseUint(ic.Args[0], 10, 16); err != nil {
					ic.Err(err)
					return
				}
			}
			if err := dev.Start(uint16(cycles)); err != nil {
				ic.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop [hard]",
		Func: func(ic *ishell.Context) {
			hard := len(ic.Args) > 0 && ic.Args[0] == "hard"
			if err := dev.Stop(hard); err != nil {
				ic.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "readback",
		Help: "readback both channels",
		Func: func(ic *ishell.Context) {
			if err := printReadback(dev, os.Stdout); err != nil {
				ic.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "text",
		Help: "show firmware debug text captured so far",
		Func: func(ic *ishell.Context) {
			ic.Print(dev.DrainText())
		},
	})

	shell.Run()
	return nil
}
