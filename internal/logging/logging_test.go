package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, level int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelQuiet)
	})
	return &buf
}

func TestLevelGating(t *testing.T) {
	tests := []struct {
		name      string
		level     int
		wantWarn  bool
		wantInfo  bool
		wantDebug bool
	}{
		{name: "quiet", level: LevelQuiet, wantWarn: true},
		{name: "info", level: LevelInfo, wantWarn: true, wantInfo: true},
		{name: "debug", level: LevelDebug, wantWarn: true, wantInfo: true, wantDebug: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureOutput(t, tc.level)

			Warn("warn %d", 1)
			Info("info %d", 2)
			Debug("debug %d", 3)

			out := buf.String()
			if got := strings.Contains(out, "[WARN] warn 1"); got != tc.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tc.wantWarn)
			}
			if got := strings.Contains(out, "[INFO] info 2"); got != tc.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tc.wantInfo)
			}
			if got := strings.Contains(out, "[DEBUG] debug 3"); got != tc.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tc.wantDebug)
			}
		})
	}
}
