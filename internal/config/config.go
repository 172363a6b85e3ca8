// Package config provides configuration for the conversation backend.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. GYB_HTTP_PORT.
const EnvPrefix = "gyb"

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int
	RPCPort  int

	// Database
	DatabaseURL string

	// Session behaviour
	ReplyDelay   time.Duration
	LoadTimeout  time.Duration
	DefaultAgent string

	// Assistant replies
	ReplyMode     string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Event fan-out; an empty URL disables it
	NATSURL           string
	NATSSubjectPrefix string

	// Send policy; empty means the built-in policy
	PolicyFile string

	// Logging
	LogLevel   string
	LogFormat  string
	LogFile    string
	WithCaller bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http-port", 8080)
	v.SetDefault("rpc-port", 8081)
	v.SetDefault("database-url", "file:gyb.db?cache=shared&mode=rwc")
	v.SetDefault("reply-delay-ms", 1000)
	v.SetDefault("load-timeout-ms", 10000)
	v.SetDefault("default-agent", "Mr.GYB AI")
	v.SetDefault("reply-mode", "echo")
	v.SetDefault("openai-api-key", "")
	v.SetDefault("openai-base-url", "")
	v.SetDefault("openai-model", "gpt-3.5-turbo")
	v.SetDefault("nats-url", "")
	v.SetDefault("nats-subject-prefix", "gyb.chats")
	v.SetDefault("policy-file", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("log-file", "")
	v.SetDefault("with-caller", false)
}

// Init prepares v to read from the environment and from an optional config
// file. When configPath is empty config.yaml is searched for in the working
// directory, $HOME/.gyb and /etc/gyb. A missing file is not an error.
func Init(v *viper.Viper, configPath string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gyb")
		v.AddConfigPath("/etc/gyb")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if configPath == "" && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// Load builds a Config from the global viper instance.
func Load() *Config {
	return FromViper(viper.GetViper())
}

// FromViper builds a Config from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPPort:          v.GetInt("http-port"),
		RPCPort:           v.GetInt("rpc-port"),
		DatabaseURL:       v.GetString("database-url"),
		ReplyDelay:        time.Duration(v.GetInt("reply-delay-ms")) * time.Millisecond,
		LoadTimeout:       time.Duration(v.GetInt("load-timeout-ms")) * time.Millisecond,
		DefaultAgent:      v.GetString("default-agent"),
		ReplyMode:         strings.ToLower(v.GetString("reply-mode")),
		OpenAIAPIKey:      v.GetString("openai-api-key"),
		OpenAIBaseURL:     v.GetString("openai-base-url"),
		OpenAIModel:       v.GetString("openai-model"),
		NATSURL:           v.GetString("nats-url"),
		NATSSubjectPrefix: v.GetString("nats-subject-prefix"),
		PolicyFile:        v.GetString("policy-file"),
		LogLevel:          v.GetString("log-level"),
		LogFormat:         v.GetString("log-format"),
		LogFile:           v.GetString("log-file"),
		WithCaller:        v.GetBool("with-caller"),
	}
}
