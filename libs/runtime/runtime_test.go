package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "booking-service", "info").Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "booking-service" {
		t.Fatalf("expected service attribute, got %v", line["service"])
	}
}

func TestReadyHandler(t *testing.T) {
	ok := ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }}
	bad := ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("down") }}

	rec := httptest.NewRecorder()
	ReadyHandler(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReadyHandler(ok, bad).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body readiness
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Failures["kafka"] != "down" {
		t.Fatalf("expected kafka failure, got %+v", body.Failures)
	}
}

func TestGracefulStopRunsEveryStep(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	var order []string
	GracefulStop(logger, time.Second,
		Stopper{Name: "http", Stop: func(context.Context) error { order = append(order, "http"); return errors.New("busy") }},
		Stopper{Name: "grpc", Stop: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("expected a deadline")
			}
			order = append(order, "grpc")
			return nil
		}},
	)
	if len(order) != 2 || order[0] != "http" || order[1] != "grpc" {
		t.Fatalf("unexpected order %v", order)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"step":"http"`)) || !bytes.Contains(buf.Bytes(), []byte("busy")) {
		t.Fatalf("failure not logged: %s", buf.String())
	}
}
