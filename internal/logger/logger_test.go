package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   Fields
		expected string
	}{
		{name: "empty", fields: nil, expected: ""},
		{name: "sorted keys", fields: Fields{"stage": "t-voice", "index": 3, "key": "C major"}, expected: "{index=3, key=C major, stage=t-voice}"},
		{name: "floats", fields: Fields{"tempo": 92.5}, expected: "{tempo=92.50}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFields(tt.fields))
		})
	}
}

func TestLevelsWithoutSentryClient(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("Structure applied", Fields{"structure": "retrograde"})
		Info("info", nil)
		Warn("warn", Fields{"index": 1})
		Error("failed", errors.New("boom"), Fields{"request_id": "r1"})
		Error("failed without error", nil, nil)
	})
}
