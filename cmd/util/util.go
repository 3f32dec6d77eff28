package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/backend/mbackend"
	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the store connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	d := common.DefaultClientConfig()

	key := "host"
	cmd.PersistentFlags().String(key, d.Host, WrapString("Host of the store"))

	key = "port"
	cmd.PersistentFlags().Int(key, d.Port, WrapString("Port of the store"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password of the store (prefer the DCOL_PASSWORD environment variable)"))

	key = "db"
	cmd.PersistentFlags().Int(key, 0, WrapString("Logical database of the store"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Overall timeout of a command in seconds (0 = wait until the store is reachable)"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Dial timeout in milliseconds (0 = client default)"))

	key = "read-timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Read timeout in milliseconds (0 = client default)"))

	key = "reconnect-retries"
	cmd.PersistentFlags().Int(key, d.ReconnectRetries, WrapString("How many times to retry connecting to the store (0 = retry forever)"))

	key = "reconnect-initial"
	cmd.PersistentFlags().Int(key, d.ReconnectInitialMs, WrapString("Initial reconnect backoff in milliseconds"))

	key = "reconnect-max"
	cmd.PersistentFlags().Int(key, d.ReconnectMaxMs, WrapString("Maximum reconnect backoff in milliseconds"))

	key = "lock-initial-backoff"
	cmd.PersistentFlags().Int(key, d.LockInitialBackoffUs, WrapString("Initial backoff of a contended lock in microseconds"))

	key = "lock-max-backoff"
	cmd.PersistentFlags().Int(key, d.LockMaxBackoffUs, WrapString("Maximum backoff of a contended lock in microseconds"))

	key = "lock-attempts"
	cmd.PersistentFlags().Int(key, d.LockMaxAttempts, WrapString("How many times a blocking acquire tries the lock (0 = until the timeout)"))

	key = "key-codec"
	cmd.PersistentFlags().String(key, d.KeyCodec, WrapString("Codec for mapping keys (json, gob, binary)"))

	key = "value-codec"
	cmd.PersistentFlags().String(key, d.ValueCodec, WrapString("Codec for values (json, gob, binary)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, d.LogLevel, WrapString("Log level (debug, info, warn, error)"))

	key = "memory"
	cmd.PersistentFlags().Bool(key, false, WrapString("Use an in-process store instead of a remote one (data is lost when the command exits)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dcol")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Host:                 viper.GetString("host"),
		Port:                 viper.GetInt("port"),
		Password:             viper.GetString("password"),
		DB:                   viper.GetInt("db"),
		DialTimeoutMs:        viper.GetInt("dial-timeout"),
		ReadTimeoutMs:        viper.GetInt("read-timeout"),
		ReconnectRetries:     viper.GetInt("reconnect-retries"),
		ReconnectInitialMs:   viper.GetInt("reconnect-initial"),
		ReconnectMaxMs:       viper.GetInt("reconnect-max"),
		LockInitialBackoffUs: viper.GetInt("lock-initial-backoff"),
		LockMaxBackoffUs:     viper.GetInt("lock-max-backoff"),
		LockMaxAttempts:      viper.GetInt("lock-attempts"),
		KeyCodec:             viper.GetString("key-codec"),
		ValueCodec:           viper.GetString("value-codec"),
		LogLevel:             viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// Setup binds the flags of cmd, initializes the loggers and opens a connection pool.
// With --memory the pool is backed by an in-process store.
func Setup(cmd *cobra.Command) (*conn.Pool, common.ClientConfig, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, common.ClientConfig{}, err
	}

	config := GetClientConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, config, err
	}

	if viper.GetBool("memory") {
		server := mbackend.NewServer()
		return conn.NewPool(server.Dialer(), conn.OptionsFromConfig(config)), config, nil
	}
	return conn.NewRedisPool(config), config, nil
}

// CollectionOptions returns the options every CLI handle is opened with.
// CLI handles are persistent, a command never deletes the data it worked on.
func CollectionOptions(config common.ClientConfig, extra ...collections.Option) ([]collections.Option, error) {
	opts, err := collections.OptionsFromConfig(config)
	if err != nil {
		return nil, err
	}
	opts = append(opts, collections.Persistent())
	return append(opts, extra...), nil
}

// Context returns the context for one command, bounded by --timeout if set.
func Context() (context.Context, context.CancelFunc) {
	if seconds := viper.GetInt("timeout"); seconds > 0 {
		return context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	}
	return context.WithCancel(context.Background())
}

// Shutdown closes pool and reports failures on stderr.
func Shutdown(pool *conn.Pool) error {
	if pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ParseSlice parses a slice expression like "1:-2:3", ":5" or "::-1".
// Absent bounds become collections.Omit.
func ParseSlice(expr string) (start, stop, step int, err error) {
	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("invalid slice %q, expected start:stop[:step]", expr)
	}
	values := []int{collections.Omit, collections.Omit, collections.Omit}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid slice bound %q: %w", p, err)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}

// Endpoint returns the configured store endpoint.
func Endpoint(config common.ClientConfig) backend.Endpoint {
	return backend.Endpoint{Host: config.Host, Port: config.Port}
}
