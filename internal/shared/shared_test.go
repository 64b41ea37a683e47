package shared

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		ms   int
		want string
	}{
		{0, "0:00"},
		{61, "1:01"},
		{215, "3:35"},
		{3725, "1:02:05"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestLogger(t *testing.T) {
	t.Run("writes structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello", "key", "value")

		out := buf.String()
		if !strings.Contains(out, "hello") || !strings.Contains(out, "component=test") || !strings.Contains(out, "key=value") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if got := ParseLogLevel("DEBUG"); got != log.DebugLevel {
			t.Errorf("expected debug level, got %v", got)
		}
		if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
			t.Errorf("expected fallback to info, got %v", got)
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	var started *exec.Cmd
	origStart, origRuntime := startCommand, getRuntime
	t.Cleanup(func() { startCommand, getRuntime = origStart, origRuntime })
	startCommand = func(cmd *exec.Cmd) error { started = cmd; return nil }

	t.Run("linux uses xdg-open", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		if err := OpenBrowser("https://accounts.spotify.com/authorize?x=1"); err != nil {
			t.Fatalf("OpenBrowser() error = %v", err)
		}
		if started == nil || started.Args[0] != "xdg-open" {
			t.Errorf("expected xdg-open command, got %+v", started)
		}
	})

	t.Run("rejects non-http urls", func(t *testing.T) {
		started = nil
		if err := OpenBrowser("file:///etc/passwd"); err == nil {
			t.Error("expected error for file url")
		}
		if started != nil {
			t.Error("no command should be started for rejected url")
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected unsupported platform error")
		}
	})
}
