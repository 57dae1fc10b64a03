package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestJSONLogger_FiltersAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithLevel("payment-service", LevelInfo, &buf)

	log.Debug("hidden", nil)
	log.Info("Payment created", map[string]interface{}{"payment_id": "abc"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "payment-service", entry["service"])
	assert.Equal(t, "Payment created", entry["message"])
	assert.Equal(t, "abc", entry["payment_id"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithLevel("svc", LevelDebug, &buf)
	child := With(base, map[string]interface{}{"subscriber_id": "s1"})

	child.Warn("slow", map[string]interface{}{"dropped": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "s1", entry["subscriber_id"])
	assert.Equal(t, float64(3), entry["dropped"])

	nop := NewNop()
	assert.Same(t, nop, With(nop, map[string]interface{}{"x": 1}))
}
