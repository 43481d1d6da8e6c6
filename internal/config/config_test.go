package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, TransportSTOMP, c.Transport)
	assert.Equal(t, 10*time.Second, c.ActionTimeout)
	assert.Equal(t, time.Second, c.ResyncDelay)
	assert.Equal(t, 5*time.Second, c.AdvisoryDelay)
	assert.Equal(t, rate.Limit(5), c.ActionRate)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"LUDO_TRANSPORT":      "NATS",
		"LUDO_NATS_URL":       "nats://broker:4222",
		"LUDO_ACTION_TIMEOUT": "2500ms",
		"LUDO_ACTION_RATE":    "0.5",
		"LUDO_DEBUG":          "true",
		"LUDO_AUTO_JOIN":      "ABCD",
		"LUDO_STATUS_ADDR":    "   ",
	}))
	require.NoError(t, err)

	assert.Equal(t, TransportNATS, c.Transport)
	assert.Equal(t, "nats://broker:4222", c.NATSURL)
	assert.Equal(t, 2500*time.Millisecond, c.ActionTimeout)
	assert.Equal(t, rate.Limit(0.5), c.ActionRate)
	assert.True(t, c.Debug)
	assert.Equal(t, "ABCD", c.AutoJoin)
	assert.Equal(t, "127.0.0.1:8081", c.StatusAddr, "blank values keep the default")
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":      {"LUDO_RESYNC_DELAY": "soon"},
		"bad bool":          {"LUDO_DEBUG": "maybe"},
		"bad transport":     {"LUDO_TRANSPORT": "carrier-pigeon"},
		"zero timeout":      {"LUDO_ACTION_TIMEOUT": "0s"},
		"negative delay":    {"LUDO_MOVE_REVEAL_DELAY": "-1s"},
		"create and join":   {"LUDO_AUTO_CREATE": "1", "LUDO_AUTO_JOIN": "ABCD"},
		"bad burst":         {"LUDO_ACTION_BURST": "many"},
		"non-positive rate": {"LUDO_ACTION_RATE": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
