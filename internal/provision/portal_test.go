package provision

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caklutfi/tempmon/internal/config"
)

func testPortal(t *testing.T) (*Portal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tempmon.yaml")
	return NewPortal(path, config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil))), path
}

func postForm(t *testing.T, h http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"server":  {"broker.lab.example"},
		"port":    {"1883"},
		"topic":   {"lab/temp"},
		"polling": {"10"},
	}
}

func TestForm_SeededFromConfig(t *testing.T) {
	p, _ := testPortal(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"192.168.1.36", "1883", "myds18b20/temp", "5"} {
		if !strings.Contains(body, `value="`+want+`"`) {
			t.Errorf("form missing seeded value %q", want)
		}
	}
}

func TestSave_PersistsAndSeedsNextLoad(t *testing.T) {
	p, path := testPortal(t)

	rec := postForm(t, p.Handler(), validForm())
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /save status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got := config.Load(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got.Server != "broker.lab.example" || got.Port != 1883 ||
		got.Topic != "lab/temp" || got.PollingSeconds != 10 {
		t.Errorf("persisted config = %+v", got)
	}
	// Fields outside the form keep their defaults.
	if got.NTPServer != config.Default().NTPServer {
		t.Errorf("ntp server changed by provisioning: %q", got.NTPServer)
	}
}

func TestSave_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty server", "server", ""},
		{"overlong topic", "topic", strings.Repeat("t", 50)},
		{"port zero", "port", "0"},
		{"port junk", "port", "mqtt"},
		{"polling zero", "polling", "0"},
		{"polling negative", "polling", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, path := testPortal(t)
			form := validForm()
			form.Set(tt.key, tt.value)

			rec := postForm(t, p.Handler(), form)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}

			// Nothing persisted on a rejected submit.
			if got := config.Load(path, slog.New(slog.NewTextHandler(io.Discard, nil))); got != config.Default() {
				t.Errorf("rejected submit persisted config: %+v", got)
			}
		})
	}
}

func TestRun_ClosesAfterSave(t *testing.T) {
	p, _ := testPortal(t)

	type result struct {
		cfg   config.Configuration
		saved bool
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		cfg, saved, err := p.Run(context.Background(), "127.0.0.1:0", time.Minute)
		resCh <- result{cfg, saved, err}
	}()

	// The listener address is not exposed; drive the handler directly
	// and let Run observe the save signal.
	time.Sleep(50 * time.Millisecond)
	postForm(t, p.Handler(), validForm())

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("Run: %v", res.err)
		}
		if !res.saved {
			t.Error("Run reported no save")
		}
		if res.cfg.Topic != "lab/temp" {
			t.Errorf("Run config topic = %q, want lab/temp", res.cfg.Topic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after save")
	}
}

func TestRun_WindowElapses(t *testing.T) {
	p, _ := testPortal(t)

	start := time.Now()
	cfg, saved, err := p.Run(context.Background(), "127.0.0.1:0", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved {
		t.Error("Run reported save without a submit")
	}
	if cfg != config.Default() {
		t.Errorf("config changed without save: %+v", cfg)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("window close took %v", elapsed)
	}
}

func TestRun_ListenFailure(t *testing.T) {
	p, _ := testPortal(t)

	_, _, err := p.Run(context.Background(), "256.0.0.1:99999", time.Second)
	if err == nil {
		t.Fatal("Run with unbindable address should error")
	}
}
