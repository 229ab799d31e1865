package alert

import (
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mediagraph/pkg/config"
)

type sent struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestAlerter(t *testing.T, fail error) (*EmailAlerter, *[]sent, *time.Time) {
	t.Helper()
	a := NewEmailAlerter(config.AlertConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 2525,
		From:     "mediagraph@example.com",
		To:       []string{"ops@example.com", "dev@example.com"},
	})
	var calls []sent
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls = append(calls, sent{addr: addr, from: from, to: to, msg: string(msg)})
		return fail
	}
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return clock }
	return a, &calls, &clock
}

func TestEmailAlerterSends(t *testing.T) {
	a, calls, _ := newTestAlerter(t, nil)

	require.NoError(t, a.Alert("OMDb circuit open", "state changed to open"))
	require.Len(t, *calls, 1)

	c := (*calls)[0]
	assert.Equal(t, "smtp.example.com:2525", c.addr)
	assert.Equal(t, "mediagraph@example.com", c.from)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, c.to)
	assert.Contains(t, c.msg, "To: ops@example.com,dev@example.com\r\n")
	assert.Contains(t, c.msg, "Subject: [mediagraph] OMDb circuit open\r\n")
	assert.Contains(t, c.msg, "state changed to open")
}

func TestEmailAlerterQuietPeriod(t *testing.T) {
	a, calls, clock := newTestAlerter(t, nil)

	require.NoError(t, a.Alert("same", "one"))
	require.NoError(t, a.Alert("same", "two"))
	require.NoError(t, a.Alert("other", "three"))
	assert.Len(t, *calls, 2)

	*clock = clock.Add(DefaultQuietPeriod + time.Second)
	require.NoError(t, a.Alert("same", "four"))
	assert.Len(t, *calls, 3)
}

func TestEmailAlerterFailureAllowsRetry(t *testing.T) {
	a, calls, _ := newTestAlerter(t, errors.New("connection refused"))

	err := a.Alert("subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send alert email")

	_ = a.Alert("subject", "body")
	assert.Len(t, *calls, 2)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.IsType(t, &NoOpAlerter{}, New(config.AlertConfig{}, nil))
	assert.IsType(t, &EmailAlerter{}, New(config.AlertConfig{Enabled: true, SMTPHost: "h", To: []string{"x"}}, nil))
	assert.NoError(t, (&NoOpAlerter{}).Alert("a", "b"))
}
