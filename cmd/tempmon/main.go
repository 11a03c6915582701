// Tempmon is a single-node temperature monitor: it reads a DS18B20
// probe on a fixed cadence, publishes each reading to an MQTT broker,
// and shows the current and last-confirmed readings on a small OLED.
//
// Configuration lives in a single flat YAML file (see
// [config.DefaultSearchPaths]) and is edited through a boot-time HTTP
// provisioning portal.
//
// Usage:
//
//	tempmon run          Start the monitor
//	tempmon provision    Serve the setup portal until saved
//	tempmon init [path]  Write a default config file
//	tempmon version      Print version and build information
//	tempmon -o json version
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caklutfi/tempmon/internal/buildinfo"
	"github.com/caklutfi/tempmon/internal/config"
	"github.com/caklutfi/tempmon/internal/display"
	"github.com/caklutfi/tempmon/internal/monitor"
	"github.com/caklutfi/tempmon/internal/mqtt"
	"github.com/caklutfi/tempmon/internal/provision"
	"github.com/caklutfi/tempmon/internal/sensor"
	"github.com/caklutfi/tempmon/internal/timesync"
)

// main constructs the OS-level environment and delegates to run. This
// keeps os.Exit, os.Stdout, and os.Args out of the application logic
// so the lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand rather
// than with the flag package: flag's package-level globals interfere
// with calling run concurrently from tests, and the surface here is
// tiny.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var sim bool
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case args[i] == "-sim":
			sim = true
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "run", "":
		return runMonitor(ctx, stdout, configPath, sim)
	case "provision":
		return runProvision(ctx, stdout, configPath)
	case "init":
		path := config.FindConfig(configPath)
		if len(cmdArgs) > 0 {
			path = cmdArgs[0]
		}
		return runInit(stdout, path)
	case "version":
		return printVersion(stdout, outputFmt)
	default:
		return fmt.Errorf("unknown command: %q (see tempmon -help)", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, `usage: tempmon [-config path] [-sim] [-o text|json] <command>

commands:
  run          start the monitor (default)
  provision    serve the setup portal until saved
  init [path]  write a default config file
  version      print version and build information`)
	return nil
}

func printVersion(w io.Writer, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(buildinfo.Info())
	}
	fmt.Fprintln(w, buildinfo.String())
	return nil
}

func runInit(w io.Writer, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote default config to %s\n", path)
	return nil
}

// newLogger builds the process logger from the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// runProvision serves the portal with no window limit: it stays up
// until a save or an interrupt. Used for deliberate reconfiguration.
func runProvision(ctx context.Context, stdout io.Writer, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := config.FindConfig(configPath)
	cfg := config.Load(path, slog.Default())
	logger := newLogger(stdout, cfg.LogLevel)

	portal := provision.NewPortal(path, cfg, logger)
	_, saved, err := portal.Run(ctx, provision.DefaultAddr, 0)
	if err != nil {
		return err
	}
	if saved {
		logger.Info("provisioning complete", "path", path)
	}
	return nil
}

// runMonitor is the full boot sequence: config, display, provisioning
// window, time sync, sensor, broker, control loop. Provisioning and
// time sync strictly precede the loop; each either completes or
// explicitly falls back before steady-state operation begins.
func runMonitor(ctx context.Context, stdout io.Writer, configPath string, sim bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := config.FindConfig(configPath)
	cfg := config.Load(path, slog.Default())
	logger := newLogger(stdout, cfg.LogLevel)
	logger.Info("starting", "build", buildinfo.String(), "config", path)

	dev := openDisplay(cfg, sim, stdout, logger)
	defer dev.Close()
	screen := display.NewRenderer(dev, logger)

	// Boot provisioning window. Open even after a clean config load so
	// a device pointed at the wrong broker can always be fixed.
	if cfg.PortalSeconds > 0 {
		screen.Message("setup " + provision.DefaultAddr)
		portal := provision.NewPortal(path, cfg, logger)
		updated, saved, err := portal.Run(ctx, provision.DefaultAddr, time.Duration(cfg.PortalSeconds)*time.Second)
		if err != nil {
			// Without a working provisioning path the device cannot be
			// rescued remotely; exit and let the supervisor restart us.
			screen.Message("setup failed")
			return fmt.Errorf("provisioning: %w", err)
		}
		if saved {
			cfg = updated
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	clock := timesync.NewClock(logger)
	if err := clock.Sync(ctx, cfg.NTPServer); err != nil {
		logger.Warn("time sync failed, timestamps disabled", "error", err)
	}

	reader := openSensor(sim, clock.Now, logger)

	client := mqtt.NewClient(mqtt.Options{
		BrokerURL: cfg.BrokerURL(),
		ClientID:  cfg.ClientID,
		Logger:    logger,
	})
	if err := client.Start(ctx); err != nil {
		screen.Message("broker config bad")
		return fmt.Errorf("mqtt: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client.Stop(stopCtx)
	}()

	loop := monitor.New(monitor.Config{
		Topic:     cfg.Topic,
		Interval:  cfg.PollInterval(),
		Sensor:    reader,
		Publisher: client,
		Display:   screen,
		Logger:    logger,
	})
	loop.Run(ctx)
	return nil
}

// openDisplay picks the display device: console in -sim mode or when
// configured off, otherwise the OLED with a console fallback. A
// missing display must not stop telemetry.
func openDisplay(cfg config.Configuration, sim bool, stdout io.Writer, logger *slog.Logger) display.Device {
	if sim || cfg.DisplayBus == "none" {
		return display.NewConsole(stdout)
	}
	dev, err := display.OpenOLED(cfg.DisplayBus, logger)
	if err != nil {
		logger.Warn("display unavailable, using console", "error", err)
		return display.NewConsole(stdout)
	}
	return dev
}

// openSensor picks the probe: a fake ramp in -sim mode, otherwise the
// first DS18B20 on the w1 bus. A missing probe degrades to the
// disconnected sentinel rather than refusing to start.
func openSensor(sim bool, clock sensor.TimeSource, logger *slog.Logger) monitor.Sensor {
	if sim {
		return sensor.NewFake(clock, 19.5, 20.0, 20.5, 21.0, 21.5)
	}
	probe, err := sensor.Discover(clock, logger)
	if err != nil {
		logger.Error("sensor unavailable, readings will be invalid", "error", err)
		return sensor.NewOffline(clock)
	}
	return probe
}
