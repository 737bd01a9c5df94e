package builtin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterSource("http", func() plugin.Source { return &HTTPSource{} })
}

// HTTPSource is an inbound webhook receiver: it listens on address/path
// and turns each POSTed body into a LogEvent. Grounded on
// stream.HTTPSource's address/path config shape, which is a push
// receiver — unlike pkg/source/http.go's pull client, which polls a
// remote URL and belongs to a different kind of source entirely.
//
// Backpressure policy: a request is held open (and the client blocked)
// until emit accepts the event, returning 503 only if the server itself
// is shutting down.
type HTTPSource struct {
	address string
	path    string
	server  *http.Server

	mu    sync.Mutex
	stats plugin.SourceStats
	done  chan struct{}
}

func (s *HTTPSource) Name() string { return "http" }
func (s *HTTPSource) Type() string { return "http" }

func (s *HTTPSource) Open(_ context.Context, cfg plugin.Config) error {
	s.address = cfg.GetString("address", ":8080")
	s.path = cfg.GetString("path", "/events")
	s.done = make(chan struct{})
	return nil
}

func (s *HTTPSource) Start(ctx context.Context, emit plugin.EmitFunc) error {
	router := mux.NewRouter()
	router.HandleFunc(s.path, s.handle(ctx, emit)).Methods(http.MethodPost)

	s.server = &http.Server{
		Addr:              s.address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-s.done:
		return nil
	case err := <-errCh:
		return &plugin.OpenError{Plugin: "http", Err: err}
	}
}

func (s *HTTPSource) handle(ctx context.Context, emit plugin.EmitFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		defer r.Body.Close()
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		evt := logevent.New("http", string(body))
		if ct := r.Header.Get("Content-Type"); ct != "" {
			evt.Metadata["content_type"] = ct
		}
		if isJSON(body) {
			var parsed map[string]any
			if json.Unmarshal(body, &parsed) == nil {
				evt.Fields = parsed
			}
		}

		if emit != nil {
			// Give up on the event when either the request or the source's
			// own context ends, so a shutdown does not leave it blocked.
			emitCtx, cancel := context.WithCancel(r.Context())
			defer cancel()
			stopAfter := context.AfterFunc(ctx, cancel)
			defer stopAfter()
			if err := emit(emitCtx, evt); err != nil {
				http.Error(w, "rejected", http.StatusServiceUnavailable)
				return
			}
		}
		s.mu.Lock()
		s.stats.EventsEmitted++
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func isJSON(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

func (s *HTTPSource) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return err
}

func (s *HTTPSource) Stats() plugin.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
