package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds every setting a process needs to open collections.
type ClientConfig struct {
	// Store endpoint
	Host     string
	Port     int
	Password string
	DB       int

	// Timeouts of a single remote call (0 = client default)
	DialTimeoutMs int
	ReadTimeoutMs int

	// Reconnect policy of the connection manager
	ReconnectRetries   int // 0 = retry forever
	ReconnectInitialMs int
	ReconnectMaxMs     int

	// Spin policy of the cooperative lock
	LockInitialBackoffUs int
	LockMaxBackoffUs     int
	LockMaxAttempts      int // 0 = spin forever

	// Codecs (gob, json, binary)
	KeyCodec   string
	ValueCodec string

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a configuration for a local store with unbounded retries.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:                 "localhost",
		Port:                 6379,
		ReconnectRetries:     0,
		ReconnectInitialMs:   50,
		ReconnectMaxMs:       5000,
		LockInitialBackoffUs: 100,
		LockMaxBackoffUs:     50000,
		LockMaxAttempts:      0,
		KeyCodec:             "json",
		ValueCodec:           "gob",
		LogLevel:             "warn",
	}
}

// Addr returns the endpoint in host:port form.
func (c *ClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DialTimeout returns the dial timeout as duration.
func (c *ClientConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the read timeout as duration.
func (c *ClientConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	unbounded := func(n int) string {
		if n <= 0 {
			return "unbounded"
		}
		return strconv.Itoa(n)
	}

	addSection("Store")
	addField("Endpoint", c.Addr())
	addField("Database", strconv.Itoa(c.DB))
	addField("Password", strings.Repeat("*", len(c.Password)))
	addField("Dial Timeout", fmt.Sprintf("%d ms", c.DialTimeoutMs))
	addField("Read Timeout", fmt.Sprintf("%d ms", c.ReadTimeoutMs))

	addSection("Reconnect")
	addField("Retries", unbounded(c.ReconnectRetries))
	addField("Initial Backoff", fmt.Sprintf("%d ms", c.ReconnectInitialMs))
	addField("Max Backoff", fmt.Sprintf("%d ms", c.ReconnectMaxMs))

	addSection("Lock")
	addField("Initial Backoff", fmt.Sprintf("%d µs", c.LockInitialBackoffUs))
	addField("Max Backoff", fmt.Sprintf("%d µs", c.LockMaxBackoffUs))
	addField("Max Attempts", unbounded(c.LockMaxAttempts))

	addSection("Codecs")
	addField("Keys", c.KeyCodec)
	addField("Values", c.ValueCodec)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
