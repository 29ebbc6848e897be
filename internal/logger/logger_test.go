package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		json          bool
		expectedLevel zapcore.Level
		expectedError bool
	}{
		{name: "info_console", level: "info", expectedLevel: zapcore.InfoLevel},
		{name: "debug_json", level: "debug", json: true, expectedLevel: zapcore.DebugLevel},
		{name: "upper_case_level", level: "WARN", expectedLevel: zapcore.WarnLevel},
		{name: "unknown_level", level: "loud", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.json)

			if tt.expectedError {
				if err == nil {
					t.Error("expected error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer log.Sync()

			if !log.Core().Enabled(tt.expectedLevel) {
				t.Errorf("expected level %s to be enabled", tt.expectedLevel)
			}
			if tt.expectedLevel > zapcore.DebugLevel && log.Core().Enabled(tt.expectedLevel-1) {
				t.Errorf("expected level %s to be disabled", tt.expectedLevel-1)
			}
		})
	}
}
