// Package config builds the single configuration object handed to every
// worker at startup. Values come from configs/config.yml, LABELCAST_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid marks configuration that must abort startup.
var ErrInvalid = errors.New("invalid configuration")

// MaxCanvasWidth keeps one bitmap row inside a single protocol packet and
// each half's dark-pixel count inside one byte.
const MaxCanvasWidth = 504

const envPrefix = "LABELCAST"

type Config struct {
	Port       string           `mapstructure:"port"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Canvas     CanvasConfig     `mapstructure:"canvas"`
	Countdown  CountdownConfig  `mapstructure:"countdown"`
	Printer    PrinterConfig    `mapstructure:"printer"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Icons      IconsConfig      `mapstructure:"icons"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type CanvasConfig struct {
	Width                 int  `mapstructure:"width"`
	Height                int  `mapstructure:"height"`
	MaxSize               int  `mapstructure:"max_size"`
	InvertOverlappingText bool `mapstructure:"invert_overlapping_text"`
}

type CountdownConfig struct {
	ClockTime time.Duration `mapstructure:"clock_time"`
	File      string        `mapstructure:"file"`
	Prefix    string        `mapstructure:"prefix"`
}

type PrinterConfig struct {
	Transport    string `mapstructure:"transport"` // usb | serial
	SerialDevice string `mapstructure:"serial_device"`
	Disabled     bool   `mapstructure:"disabled"`
	LabelType    uint8  `mapstructure:"label_type"`
	Density      uint8  `mapstructure:"density"`
	Quantity     uint16 `mapstructure:"quantity"`
	AutoShutdown uint8  `mapstructure:"auto_shutdown"` // 0 disables, 1..4
}

type ChatConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	URL      string   `mapstructure:"url"`
	Channel  string   `mapstructure:"channel"`
	Username string   `mapstructure:"username"`
	Token    string   `mapstructure:"token"`
	Admins   []string `mapstructure:"admins"`
}

type ExtractorConfig struct {
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	Model        string        `mapstructure:"model"`
	Prompt       string        `mapstructure:"prompt"`
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ModerationConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	BannedWords []string `mapstructure:"banned_words"`
}

type NotifyConfig struct {
	URL string `mapstructure:"url"`
}

type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

type IconsConfig struct {
	Path string `mapstructure:"path"`
}

type PipelineConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

const defaultPrompt = "You extract the x y location and size from a text, the x and y can appear " +
	"anywhere in the text and the size can be nothing in which case you set it to 5, remove the " +
	"indication words such as Place, At and with. If x<number> is used you remove the x and set number to size"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("canvas.width", 384)
	v.SetDefault("canvas.height", 240)
	v.SetDefault("canvas.max_size", 100)
	v.SetDefault("canvas.invert_overlapping_text", true)

	v.SetDefault("countdown.clock_time", 5*time.Minute)
	v.SetDefault("countdown.file", "timer.txt")
	v.SetDefault("countdown.prefix", "printing starts in: ")

	v.SetDefault("printer.transport", "usb")
	v.SetDefault("printer.label_type", 1)
	v.SetDefault("printer.density", 3)
	v.SetDefault("printer.quantity", 1)
	v.SetDefault("printer.auto_shutdown", 0)

	v.SetDefault("chat.url", "wss://irc-ws.chat.twitch.tv:443")

	v.SetDefault("extractor.model", "gpt-4o-mini")
	v.SetDefault("extractor.prompt", defaultPrompt)
	v.SetDefault("extractor.url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("extractor.timeout", 10*time.Second)

	v.SetDefault("moderation.enabled", true)
	v.SetDefault("archive.path", "saves/")
	v.SetDefault("icons.path", "images.tar")
	v.SetDefault("pipeline.queue_size", 1024)
}

// NewFlagSet declares the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to the config file (default configs/config.yml)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("port", "8080", "HTTP listen port")
	fs.Bool("disable-printer", false, "run the pipeline without touching the printer")
	fs.String("transport", "usb", "printer transport: usb or serial")
	fs.String("serial-device", "", "serial device path when --transport=serial")
	return fs
}

var flagKeys = map[string]string{
	"log-level":       "log.level",
	"port":            "port",
	"disable-printer": "printer.disabled",
	"transport":       "printer.transport",
	"serial-device":   "printer.serial_device",
}

// Load reads and validates configuration. fs must come from NewFlagSet
// and be parsed already; nil means defaults, file and environment only.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var path string
	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
		path, _ = fs.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %v", ErrInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		add("canvas size %dx%d must be positive", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Width%8 != 0 {
		add("canvas.width %d must be a multiple of 8", c.Canvas.Width)
	}
	if c.Canvas.Width > MaxCanvasWidth {
		add("canvas.width %d exceeds %d", c.Canvas.Width, MaxCanvasWidth)
	}
	if c.Canvas.Height > 0xFFFF {
		add("canvas.height %d exceeds 65535", c.Canvas.Height)
	}
	if c.Canvas.MaxSize <= 0 {
		add("canvas.max_size must be positive")
	}
	if c.Countdown.ClockTime < time.Second {
		add("countdown.clock_time %v must be at least 1s", c.Countdown.ClockTime)
	}
	switch c.Printer.Transport {
	case "usb":
	case "serial":
		if c.Printer.SerialDevice == "" && !c.Printer.Disabled {
			add("printer.serial_device is required for the serial transport")
		}
	default:
		add("unknown printer.transport %q", c.Printer.Transport)
	}
	if c.Printer.Quantity == 0 {
		add("printer.quantity must be at least 1")
	}
	if c.Printer.AutoShutdown > 4 {
		add("printer.auto_shutdown %d out of range 0..4", c.Printer.AutoShutdown)
	}
	if c.Chat.Enabled {
		if c.Chat.Token == "" {
			add("chat.token is required when chat is enabled")
		}
		if c.Chat.Username == "" {
			add("chat.username is required when chat is enabled")
		}
		if c.Chat.Channel == "" {
			add("chat.channel is required when chat is enabled")
		}
	}
	if c.Auth.JWTSecret == "" {
		add("auth.jwt_secret is required")
	}
	if c.Pipeline.QueueSize <= 0 {
		add("pipeline.queue_size must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ExtractorEnabled reports whether the remote text parser is configured.
func (c *Config) ExtractorEnabled() bool {
	return c.Extractor.OpenAIAPIKey != ""
}
