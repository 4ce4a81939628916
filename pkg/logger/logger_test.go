package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevelParsing(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"uppercase", "ERROR", zerolog.ErrorLevel},
		{"unknown falls back to info", "loud", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(Config{Level: tt.level})
			assert.Equal(t, tt.expected, log.GetLevel())
		})
	}
}

func TestNewLeavesGlobalLevelAlone(t *testing.T) {
	before := zerolog.GlobalLevel()
	New(Config{Level: "error"})
	assert.Equal(t, before, zerolog.GlobalLevel())
}
