package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_WritesStructuredEvent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Log("AuthService", "Login", "alice@example.com", "203.0.113.7", "Incorrect password", false, errors.New("mismatch"))

	var line struct {
		Event Event `json:"audit_event"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "AuthService", line.Event.Service)
	assert.Equal(t, "Login", line.Event.Action)
	assert.Equal(t, "alice@example.com", line.Event.User)
	assert.Equal(t, "203.0.113.7", line.Event.IPAddress)
	assert.False(t, line.Event.Success)
	assert.Equal(t, "mismatch", line.Event.Error)
	assert.False(t, line.Event.Timestamp.IsZero())
}
