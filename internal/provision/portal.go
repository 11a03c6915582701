// Package provision serves the boot-time configuration portal: a
// single-page HTTP form with the four broker settings, seeded from the
// persisted configuration and written back through it on submit.
//
// The portal runs before the control loop starts. By default it stays
// open for a short window at every boot — even when the stored
// configuration works — so a device with a wrong broker address can
// always be rescued without serial access. The window length is itself
// a config field; zero disables the boot portal.
package provision

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/caklutfi/tempmon/internal/config"
)

// DefaultAddr is where the portal listens.
const DefaultAddr = ":8266"

var formTmpl = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head><title>tempmon setup</title></head>
<body>
<h1>tempmon setup</h1>
<form method="POST" action="/save">
<label>Broker server <input name="server" value="{{.server}}" maxlength="40"></label><br>
<label>Broker port <input name="port" value="{{.port}}"></label><br>
<label>Topic <input name="topic" value="{{.topic}}" maxlength="49"></label><br>
<label>Poll interval (s) <input name="polling" value="{{.polling}}"></label><br>
<button type="submit">Save</button>
</form>
</body>
</html>
`))

// Portal is the provisioning HTTP server and the state it guards.
type Portal struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	cfg   config.Configuration
	saved bool
	done  chan struct{}
	once  sync.Once
}

// NewPortal creates a portal that edits cfg and persists to path.
func NewPortal(path string, cfg config.Configuration, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Portal{
		path:   path,
		logger: logger,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Run serves the portal on addr until a successful save, the window
// elapsing (window > 0), or ctx cancellation — whichever comes first.
// It returns the resulting configuration and whether a save happened.
// A listen failure is returned as-is: a device that cannot even bind
// its provisioning port cannot be rescued remotely, and the caller
// treats that as fatal.
func (p *Portal) Run(ctx context.Context, addr string, window time.Duration) (config.Configuration, bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return p.cfg, false, fmt.Errorf("provisioning portal listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: p.Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.logger.Warn("provisioning portal serve error", "error", err)
		}
	}()

	p.logger.Info("provisioning portal open", "addr", ln.Addr().String(), "window", window)

	var timeout <-chan time.Time
	if window > 0 {
		t := time.NewTimer(window)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
	case <-timeout:
		p.logger.Info("provisioning window elapsed")
	case <-p.done:
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg, p.saved, nil
}

// Handler returns the portal's routes. Exposed for tests.
func (p *Portal) Handler() http.Handler {
	mux := http.NewServeMux()
	// Go 1.21's ServeMux has no method/pattern routing; these wrappers
	// reproduce the "GET /{$}" and "POST /save" patterns by hand.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		p.handleForm(w, r)
	})
	mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		p.handleSave(w, r)
	})
	return mux
}

func (p *Portal) handleForm(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	values := p.cfg.Strings()
	p.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTmpl.Execute(w, values); err != nil {
		p.logger.Warn("render provisioning form", "error", err)
	}
}

func (p *Portal) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	server := r.PostFormValue("server")
	if err := config.ValidateServer(server); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	port, err := config.ValidatePort(r.PostFormValue("port"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	topic := r.PostFormValue("topic")
	if err := config.ValidateTopic(topic); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	polling, err := config.ValidatePolling(r.PostFormValue("polling"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.cfg.Server = server
	p.cfg.Port = port
	p.cfg.Topic = topic
	p.cfg.PollingSeconds = polling
	cfg := p.cfg
	p.mu.Unlock()

	// Written back immediately: a power cut right after provisioning
	// must not lose the new settings.
	if err := config.Save(p.path, cfg); err != nil {
		p.logger.Error("persist provisioned config", "error", err)
		http.Error(w, "could not persist configuration", http.StatusInternalServerError)
		return
	}

	p.mu.Lock()
	p.saved = true
	p.mu.Unlock()

	p.logger.Info("configuration provisioned",
		"server", server, "port", port, "topic", topic, "polling", polling)

	fmt.Fprintln(w, "saved, monitor starting")
	p.once.Do(func() { close(p.done) })
}
