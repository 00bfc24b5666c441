package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthIssuer        string        `env:"AUTH_ISSUER,default=chat-relay"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthDeadline      time.Duration `env:"AUTH_DEADLINE,default=10s"`
	PongWait          time.Duration `env:"PONG_WAIT,default=60s"`
	WriteWait         time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE,default=16384"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	DeliveryTimeout   time.Duration `env:"DELIVERY_TIMEOUT,default=1s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=5s"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	PageSize          int           `env:"PAGE_SIZE,default=50"`
	TimelineCapacity  int           `env:"TIMELINE_CAPACITY,default=100"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	EnableModeration  bool          `env:"ENABLE_MODERATION,default=true"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS"`
	DefaultChannels   []string      `env:"DEFAULT_CHANNELS"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// ChannelNames returns the default channels to provision, falling back to
// the standard pair when the variable is unset.
func (c Config) ChannelNames() []string {
	if len(c.DefaultChannels) == 0 {
		return []string{"general", "random"}
	}
	return c.DefaultChannels
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
