package config

import (
	"fmt"
	"strconv"
	"time"
)

// PollInterval returns the poll cadence as a duration, clamped to a
// minimum of one second.
func (c Configuration) PollInterval() time.Duration {
	sec := c.PollingSeconds
	if sec < 1 {
		sec = 1
	}
	return time.Duration(sec) * time.Second
}

// BrokerURL returns the broker address in the tcp://host:port form the
// MQTT client expects.
func (c Configuration) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Server, c.Port)
}

// ValidateServer checks a provisioning-form server value.
func ValidateServer(s string) error {
	if s == "" {
		return fmt.Errorf("server must not be empty")
	}
	if len(s) > MaxServerLen {
		return fmt.Errorf("server must be at most %d characters", MaxServerLen)
	}
	return nil
}

// ValidatePort checks a provisioning-form port value.
func ValidatePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port must be a number: %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

// ValidateTopic checks a provisioning-form topic value.
func ValidateTopic(s string) error {
	if s == "" {
		return fmt.Errorf("topic must not be empty")
	}
	if len(s) > MaxTopicLen {
		return fmt.Errorf("topic must be at most %d characters", MaxTopicLen)
	}
	return nil
}

// ValidatePolling checks a provisioning-form poll interval value.
// Unlike load-time handling, which clamps silently, provisioning
// rejects non-positive intervals outright so the user sees the rule.
func ValidatePolling(s string) (int, error) {
	sec, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("polling interval must be a number: %q", s)
	}
	if sec < 1 {
		return 0, fmt.Errorf("polling interval must be at least 1 second, got %d", sec)
	}
	return sec, nil
}
