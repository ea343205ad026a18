package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/san-kum/heatloop/internal/config"
	"github.com/san-kum/heatloop/internal/experiment"
	"github.com/san-kum/heatloop/internal/logs"
	"github.com/san-kum/heatloop/internal/regulator"
	"github.com/san-kum/heatloop/internal/shell"
	"github.com/san-kum/heatloop/internal/telemetry"
	"github.com/san-kum/heatloop/internal/thermal"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var (
	tick       time.Duration
	logFile    string
	autostart  bool
	mqttBroker string
	mqttTopic  string
	mqttClient string
	mqttUser   string
	mqttPass   string
	mqttCACert string
	serialPort string
	baudRate   int
)

func addRegulateFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&tick, "tick", config.DefaultTick, "control period")
	cmd.Flags().StringVar(&logFile, "log", "", "log file (default stderr)")
	cmd.Flags().BoolVar(&autostart, "start", false, "start heating immediately")
	cmd.Flags().StringVar(&serialPort, "serial", "", "read commands from and write status to this serial port instead of stdin/stdout")
	cmd.Flags().IntVar(&baudRate, "baud", 115200, "serial baud rate")
	cmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "publish status to this MQTT broker, e.g. tcp://localhost:1883")
	cmd.Flags().StringVar(&mqttTopic, "mqtt-topic", "heatloop/status", "MQTT status topic")
	cmd.Flags().StringVar(&mqttClient, "mqtt-client-id", "heatloop", "MQTT client ID")
	cmd.Flags().StringVar(&mqttUser, "mqtt-username", "", "MQTT username")
	cmd.Flags().StringVar(&mqttPass, "mqtt-password", "", "MQTT password")
	cmd.Flags().StringVar(&mqttCACert, "mqtt-ca-cert", "", "custom CA cert to trust from the broker")
}

func runRegulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("tick") {
		cfg.Regulator.Tick = tick
	}

	l, err := logs.New(logFile)
	if err != nil {
		return err
	}
	defer l.Close()

	ctrl, err := experiment.NewRegistry().GetController(cfg.Controller)
	if err != nil {
		return err
	}
	plant, err := thermal.New(cfg.Plant)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	if serialPort != "" {
		port, err := serial.Open(serialPort, &serial.Mode{BaudRate: baudRate})
		if err != nil {
			return fmt.Errorf("open %s: %w", serialPort, err)
		}
		defer port.Close()
		in, out = port, port
		l.Info.Printf("serial console on %s at %d baud", serialPort, baudRate)
	}

	sinks := []regulator.StatusSink{regulator.LineSink{W: out}}
	if mqttBroker != "" {
		opts := telemetry.DefaultOptions()
		opts.Broker = mqttBroker
		opts.Topic = mqttTopic
		opts.ClientID = mqttClient
		opts.Username = mqttUser
		opts.Password = mqttPass
		opts.CACert = mqttCACert
		sink, err := telemetry.NewMQTTSink(l, opts)
		if err != nil {
			return err
		}
		if err := sink.Connect(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer sink.Close()
		sinks = append(sinks, sink)
	}

	reg, err := regulator.New(ctrl,
		&regulator.SimSensor{Plant: plant, Scale: cfg.Regulator.Scale},
		&regulator.SimActuator{Plant: plant, Max: cfg.Regulator.MaxDuty},
		regulator.Options{
			Tick:   cfg.Regulator.Tick,
			Dt:     cfg.Regulator.Dt,
			Target: cfg.Regulator.Target,
			Log:    l,
			Sinks:  sinks,
		})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Maximum Duty: %d\n", cfg.Regulator.MaxDuty)
	if autostart {
		if err := reg.Apply(shell.Command{Verb: shell.Start}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands := make(chan shell.Command)
	go func() {
		defer close(commands)
		err := shell.Feed(ctx, in, commands, func(line string, err error) {
			l.Warn.Printf("bad command %q: %v", line, err)
			fmt.Fprintf(out, "error: %v\n", err)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error.Printf("reading commands: %v", err)
		}
	}()

	if err := reg.Run(ctx, commands); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
