// Package config handles tempmon settings: the persisted broker and
// polling configuration plus runtime options.
//
// Settings are persisted as a flat mapping of string keys to string
// values, numeric fields included. Keeping everything as strings lets
// the provisioning portal seed its form fields directly from the
// stored representation without a round of formatting.
//
// Load never fails the caller: a missing, unreadable, or malformed
// file — or any individual field that does not parse — falls back to
// the documented default for that field. A monitor that cannot read
// its config should still come up and publish somewhere predictable.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Field length limits enforced during provisioning. Loaded values that
// exceed them are replaced with defaults rather than truncated.
const (
	MaxServerLen = 40
	MaxTopicLen  = 49
)

// Persisted file keys.
const (
	keyServer  = "server"
	keyPort    = "port"
	keyTopic   = "topic"
	keyPolling = "polling"
	keyClient  = "client_id"
	keyLog     = "log_level"
	keyPortal  = "portal"
	keyNTP     = "ntp_server"
	keyDisplay = "display_bus"
)

// Configuration holds all tempmon settings.
type Configuration struct {
	// Server is the MQTT broker host or IP, without scheme or port.
	Server string
	// Port is the MQTT broker TCP port (1-65535).
	Port int
	// Topic is the MQTT topic readings are published to.
	Topic string
	// PollingSeconds is the sensor poll cadence. Values below 1 are
	// clamped to 1 at use time to prevent runaway sensor and broker
	// traffic.
	PollingSeconds int
	// ClientID is the MQTT client identifier. Empty means one is
	// generated and persisted on first connect.
	ClientID string
	// LogLevel is the slog level name (trace, debug, info, warn, error).
	LogLevel string
	// PortalSeconds is how long the provisioning portal stays open at
	// every boot, even after a successful load. 0 disables the boot
	// portal entirely.
	PortalSeconds int
	// NTPServer is the host queried once at boot to establish wall
	//-clock time for reading timestamps.
	NTPServer string
	// DisplayBus selects the I²C bus of the OLED display. Empty means
	// the first available bus; "none" disables the hardware display.
	DisplayBus string
}

// Default returns the hardcoded default configuration. This is exactly
// what Load returns when no persisted file exists.
func Default() Configuration {
	return Configuration{
		Server:         "192.168.1.36",
		Port:           1883,
		Topic:          "myds18b20/temp",
		PollingSeconds: 5,
		LogLevel:       "info",
		PortalSeconds:  30,
		NTPServer:      "pool.ntp.org",
	}
}

// DefaultSearchPaths returns the config file search order. An explicit
// path (from the -config flag) is checked first by FindConfig. Then:
// ./tempmon.yaml, ~/.config/tempmon/tempmon.yaml, /etc/tempmon/tempmon.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"tempmon.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tempmon", "tempmon.yaml"))
	}

	paths = append(paths, "/etc/tempmon/tempmon.yaml")
	return paths
}

// FindConfig locates the config file. If explicit is non-empty it is
// returned as-is whether or not it exists yet — a fresh device has no
// file until first provisioning, and Load handles absence. Otherwise
// the first existing search path is returned, falling back to the
// first search path when none exist.
func FindConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return DefaultSearchPaths()[0]
}

// Load reads the configuration at path. It never returns an error:
// every failure mode (missing file, unreadable file, malformed YAML,
// unparseable field, out-of-range value) resolves to the default for
// the affected fields, with a single warn line describing what was
// recovered.
func Load(path string, logger *slog.Logger) Configuration {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("config not readable, using defaults", "path", path, "error", err)
		return cfg
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		logger.Warn("config malformed, using defaults", "path", path, "error", err)
		return cfg
	}

	cfg.applyStrings(raw, logger)
	return cfg
}

// applyStrings overlays parsed file values onto cfg, field by field.
// A field that is absent, unparseable, or out of range keeps its
// default.
func (c *Configuration) applyStrings(raw map[string]string, logger *slog.Logger) {
	if v, ok := raw[keyServer]; ok && v != "" && len(v) <= MaxServerLen {
		c.Server = v
	}
	if v, ok := raw[keyPort]; ok {
		if port, err := strconv.Atoi(v); err == nil && port >= 1 && port <= 65535 {
			c.Port = port
		} else {
			logger.Warn("ignoring invalid port in config", "value", v)
		}
	}
	if v, ok := raw[keyTopic]; ok && v != "" && len(v) <= MaxTopicLen {
		c.Topic = v
	}
	if v, ok := raw[keyPolling]; ok {
		if sec, err := strconv.Atoi(v); err == nil {
			c.PollingSeconds = sec
		} else {
			logger.Warn("ignoring invalid polling interval in config", "value", v)
		}
	}
	if v, ok := raw[keyClient]; ok {
		c.ClientID = v
	}
	if v, ok := raw[keyLog]; ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := raw[keyPortal]; ok {
		if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
			c.PortalSeconds = sec
		} else {
			logger.Warn("ignoring invalid portal window in config", "value", v)
		}
	}
	if v, ok := raw[keyNTP]; ok && v != "" {
		c.NTPServer = v
	}
	if v, ok := raw[keyDisplay]; ok {
		c.DisplayBus = v
	}
}

// Strings returns the flat string-map persisted form of c. This is the
// same representation the provisioning portal uses for form defaults.
func (c Configuration) Strings() map[string]string {
	return map[string]string{
		keyServer:  c.Server,
		keyPort:    strconv.Itoa(c.Port),
		keyTopic:   c.Topic,
		keyPolling: strconv.Itoa(c.PollingSeconds),
		keyClient:  c.ClientID,
		keyLog:     c.LogLevel,
		keyPortal:  strconv.Itoa(c.PortalSeconds),
		keyNTP:     c.NTPServer,
		keyDisplay: c.DisplayBus,
	}
}

// Save writes the configuration to path. The write goes to a temp file
// in the same directory followed by a rename, so a crash mid-write
// leaves the previous file intact for the next boot.
func Save(path string, cfg Configuration) error {
	data, err := yaml.Marshal(cfg.Strings())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tempmon-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
