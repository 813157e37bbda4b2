// bridge reads telemetry frames from the STM32 over a serial port and
// forwards each frame to the server, either as an HTTP POST to /api/stm32 or
// as an MQTT publish on the server's frame topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/lmittmann/tint"
	"go.bug.st/serial"

	"dronectl-server/internal/bridge"
	"dronectl-server/internal/config"
)

type bridgeConfig struct {
	SerialPort string
	BaudRate   int
	Forward    string // http | mqtt
	ServerURL  string
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})).With("app", "dronectl-bridge")
	slog.SetDefault(logger)

	cfg, err := loadBridgeConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}

func loadBridgeConfig() (bridgeConfig, error) {
	port := strings.TrimSpace(os.Getenv("BRIDGE_SERIAL_PORT"))
	if port == "" {
		port = "/dev/ttyUSB0"
	}

	baudStr := strings.TrimSpace(os.Getenv("BRIDGE_BAUD"))
	if baudStr == "" {
		baudStr = "115200"
	}
	baud, err := strconv.Atoi(baudStr)
	if err != nil || baud <= 0 {
		return bridgeConfig{}, fmt.Errorf("invalid BRIDGE_BAUD %q", baudStr)
	}

	forward := strings.TrimSpace(os.Getenv("BRIDGE_FORWARD"))
	if forward == "" {
		forward = "http"
	}
	switch forward {
	case "http", "mqtt":
	default:
		return bridgeConfig{}, fmt.Errorf("invalid BRIDGE_FORWARD %q (allowed: http, mqtt)", forward)
	}

	serverURL := strings.TrimSpace(os.Getenv("BRIDGE_SERVER_URL"))
	if serverURL == "" {
		serverURL = "http://localhost:8000"
	}

	return bridgeConfig{
		SerialPort: port,
		BaudRate:   baud,
		Forward:    forward,
		ServerURL:  strings.TrimRight(serverURL, "/"),
	}, nil
}

func run(ctx context.Context, cfg bridgeConfig) error {
	forwarder, cleanup, err := newForwarder(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.SerialPort, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", cfg.SerialPort, err)
	}
	slog.Info("serial port opened", "port", cfg.SerialPort, "baud", cfg.BaudRate)

	// Closing the port unblocks the Read loop on shutdown.
	go func() {
		<-ctx.Done()
		if err := port.Close(); err != nil {
			slog.Warn("serial close failed", "error", err)
		}
	}()

	framer := bridge.NewFramer()
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("serial read: %w", err)
		}
		for _, frame := range framer.Push(buf[:n]) {
			if err := forwarder.Forward(frame); err != nil {
				slog.Warn("forward failed", "error", err, "frame", string(frame))
			} else {
				slog.Debug("frame forwarded", "size", len(frame))
			}
		}
	}
}

func newForwarder(cfg bridgeConfig) (bridge.Forwarder, func(), error) {
	if cfg.Forward == "http" {
		return bridge.NewHTTPForwarder(cfg.ServerURL), func() {}, nil
	}

	// MQTT settings are shared with the server config.
	srvCfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", srvCfg.MQTTBroker, srvCfg.MQTTPort))
	opts.SetClientID("dronectl-bridge")
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	client := mqttlib.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect timeout")
	}
	if token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	slog.Info("mqtt connected", "broker", srvCfg.MQTTBroker, "port", srvCfg.MQTTPort, "topic", srvCfg.MQTTTopic)

	cleanup := func() { client.Disconnect(250) }
	return &bridge.MQTTForwarder{Client: client, Topic: srvCfg.MQTTTopic}, cleanup, nil
}
