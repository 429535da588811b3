package logger

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// withCapturedStdout runs f with os.Stdout swapped for a pipe and
// returns everything written to it.
func withCapturedStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()

	_ = w.Close()
	b, _ := io.ReadAll(r)
	_ = r.Close()
	return string(b)
}

func TestErrorEventCarriesServiceAndStack(t *testing.T) {
	out := withCapturedStdout(t, func() {
		log := New("episode-service")
		log.Error().Stack().Err(errors.New("boom")).Msg("write failed")
	})

	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
		}
	}
	if line == "" {
		t.Fatal("no log output captured")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("log line is not json: %v\n%s", err, line)
	}
	if payload["service"] != "episode-service" {
		t.Errorf("service = %v, want episode-service", payload["service"])
	}
	if payload["level"] != "error" {
		t.Errorf("level = %v, want error", payload["level"])
	}
	if _, ok := payload["stack"]; !ok {
		t.Errorf("stack field missing: %s", line)
	}
	if _, ok := payload["time"]; !ok {
		t.Errorf("time field missing: %s", line)
	}
}
