package util

import (
	"strings"

	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

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

// SetupEncoderFlags adds the pool and logging flags to a command
func SetupEncoderFlags(cmd *cobra.Command) {
	key := "min-segment-size"
	cmd.PersistentFlags().Int(key, buffer.DefaultMinimumSize, WrapString("Smallest block (in bytes) the segment pool hands out"))

	key = "max-segment-size"
	cmd.PersistentFlags().Int(key, buffer.DefaultMaxSegmentSize, WrapString("Largest segment (in bytes) a sink links in one step, larger writes are split"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("Log level (debug, info, warn, error), logs are written to stderr"))
}

// InitConfig initializes configuration from .env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dwire")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
	viper.SetDefault("format", string(common.FormatHex))
}

// GetEncoderConfig reads the encoder configuration from viper
func GetEncoderConfig() *common.EncoderConfig {
	return &common.EncoderConfig{
		Pool: common.PoolConfig{
			MinimumSize:    viper.GetInt("min-segment-size"),
			MaxSegmentSize: viper.GetInt("max-segment-size"),
		},
		Format:   common.OutputFormat(viper.GetString("format")),
		LogLevel: viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's own and inherited flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Flags())
}

// SetupEncoder validates the configuration, initializes the loggers and
// installs the configured segment pool as default pool
func SetupEncoder(cmd *cobra.Command, _ []string) error {
	if err := BindCommandFlags(cmd); err != nil {
		return err
	}

	config := GetEncoderConfig()
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if err := common.InitLoggers(*config); err != nil {
		return err
	}

	pool, err := buffer.NewPool(config.Pool.MinimumSize, config.Pool.MaxSegmentSize)
	if err != nil {
		return err
	}
	buffer.SetDefaultPool(pool)

	Logger.Debugf("configuration:%s", config.String())
	return nil
}
