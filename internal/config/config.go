// Package config loads client settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

var ErrInvalid = errors.New("invalid configuration")

type Transport string

const (
	TransportSTOMP Transport = "stomp"
	TransportNATS  Transport = "nats"
)

type Config struct {
	Transport  Transport
	ServerURL  string
	STOMPHost  string
	HeartBeat  time.Duration
	NATSURL    string
	ClientName string

	ActionTimeout     time.Duration
	ResyncDelay       time.Duration
	AdvisoryDelay     time.Duration
	TurnAnnounceDelay time.Duration
	MoveRevealDelay   time.Duration
	ReconnectDelay    time.Duration
	AnimationWatchdog time.Duration
	ActionRate        rate.Limit
	ActionBurst       int

	IdentityFile string
	DatabaseURL  string
	Profile      string

	StatusAddr string
	LogLevel   string
	Debug      bool

	AutoCreate bool
	AutoJoin   string
}

func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Transport:         TransportSTOMP,
		ServerURL:         "ws://localhost:8080/ws",
		STOMPHost:         "/",
		HeartBeat:         10 * time.Second,
		NATSURL:           "nats://localhost:4222",
		ClientName:        "ludo-sync",
		ActionTimeout:     10 * time.Second,
		ResyncDelay:       time.Second,
		AdvisoryDelay:     5 * time.Second,
		TurnAnnounceDelay: 600 * time.Millisecond,
		MoveRevealDelay:   300 * time.Millisecond,
		ReconnectDelay:    3 * time.Second,
		AnimationWatchdog: 5 * time.Second,
		ActionRate:        5,
		ActionBurst:       5,
		IdentityFile:      home + "/.ludo-sync/player-id",
		Profile:           "default",
		StatusAddr:        "127.0.0.1:8081",
		LogLevel:          "info",
	}
}

// Load reads .env (if present) then LUDO_* variables over the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config using lookup for each key.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Defaults()
	p := parser{lookup: lookup}

	c.Transport = Transport(strings.ToLower(p.str("LUDO_TRANSPORT", string(c.Transport))))
	c.ServerURL = p.str("LUDO_SERVER_URL", c.ServerURL)
	c.STOMPHost = p.str("LUDO_STOMP_HOST", c.STOMPHost)
	c.HeartBeat = p.dur("LUDO_HEARTBEAT", c.HeartBeat)
	c.NATSURL = p.str("LUDO_NATS_URL", c.NATSURL)
	c.ClientName = p.str("LUDO_CLIENT_NAME", c.ClientName)

	c.ActionTimeout = p.dur("LUDO_ACTION_TIMEOUT", c.ActionTimeout)
	c.ResyncDelay = p.dur("LUDO_RESYNC_DELAY", c.ResyncDelay)
	c.AdvisoryDelay = p.dur("LUDO_ADVISORY_DELAY", c.AdvisoryDelay)
	c.TurnAnnounceDelay = p.dur("LUDO_TURN_ANNOUNCE_DELAY", c.TurnAnnounceDelay)
	c.MoveRevealDelay = p.dur("LUDO_MOVE_REVEAL_DELAY", c.MoveRevealDelay)
	c.ReconnectDelay = p.dur("LUDO_RECONNECT_DELAY", c.ReconnectDelay)
	c.AnimationWatchdog = p.dur("LUDO_ANIMATION_WATCHDOG", c.AnimationWatchdog)
	c.ActionRate = rate.Limit(p.number("LUDO_ACTION_RATE", float64(c.ActionRate)))
	c.ActionBurst = p.integer("LUDO_ACTION_BURST", c.ActionBurst)

	c.IdentityFile = p.str("LUDO_IDENTITY_FILE", c.IdentityFile)
	c.DatabaseURL = p.str("LUDO_DATABASE_URL", c.DatabaseURL)
	c.Profile = p.str("LUDO_PROFILE", c.Profile)

	c.StatusAddr = p.str("LUDO_STATUS_ADDR", c.StatusAddr)
	c.LogLevel = p.str("LUDO_LOG_LEVEL", c.LogLevel)
	c.Debug = p.boolean("LUDO_DEBUG", c.Debug)

	c.AutoCreate = p.boolean("LUDO_AUTO_CREATE", c.AutoCreate)
	c.AutoJoin = p.str("LUDO_AUTO_JOIN", c.AutoJoin)

	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Transport != TransportSTOMP && c.Transport != TransportNATS {
		errs = append(errs, fmt.Errorf("%w: LUDO_TRANSPORT %q (want stomp or nats)", ErrInvalid, c.Transport))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: LUDO_ACTION_TIMEOUT must be positive", ErrInvalid))
	}
	if c.ActionRate <= 0 || c.ActionBurst <= 0 {
		errs = append(errs, fmt.Errorf("%w: action rate and burst must be positive", ErrInvalid))
	}
	if c.AutoCreate && c.AutoJoin != "" {
		errs = append(errs, fmt.Errorf("%w: LUDO_AUTO_CREATE and LUDO_AUTO_JOIN are exclusive", ErrInvalid))
	}
	for name, d := range map[string]time.Duration{
		"LUDO_RESYNC_DELAY":        c.ResyncDelay,
		"LUDO_ADVISORY_DELAY":      c.AdvisoryDelay,
		"LUDO_TURN_ANNOUNCE_DELAY": c.TurnAnnounceDelay,
		"LUDO_MOVE_REVEAL_DELAY":   c.MoveRevealDelay,
		"LUDO_RECONNECT_DELAY":     c.ReconnectDelay,
		"LUDO_ANIMATION_WATCHDOG":  c.AnimationWatchdog,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%w: %s must not be negative", ErrInvalid, name))
		}
	}
	return errors.Join(errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return def
	}
	return n
}

func (p *parser) number(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return def
	}
	return b
}
