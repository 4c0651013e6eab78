package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopulse/protocol"
)

func TestSamplePayload(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	s := newSample(protocol.ChannelFast, 500, 0x02, at)
	payload, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"channel":"fast","period":500,"units":"us","flags":2,"time":"2026-03-14T09:26:53Z"}`,
		string(payload))

	s = newSample(protocol.ChannelSlow, 100, 0, at)
	assert.Equal(t, "ms", s.Units)
	assert.Equal(t, "slow", s.Channel)
}

func TestTopicFor(t *testing.T) {
	p := &Publisher{prefix: "gopulse", hostID: "abc123"}

	assert.Equal(t, "gopulse/abc123/fast", p.topicFor(protocol.ChannelFast))
	assert.Equal(t, "gopulse/abc123/slow", p.topicFor(protocol.ChannelSlow))
}
