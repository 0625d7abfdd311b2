package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/render"
)

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness runs every checker concurrently under the readiness timeout.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	timeout := s.cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		status = make(map[string]string, len(s.checkers))
		failed bool
	)

	for _, c := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Warn only: the orchestrator retries the probe.
				s.logger.Warn("readiness check failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				status[c.Name()] = fmt.Sprintf("down: %v", err)
				failed = true
				return
			}
			status[c.Name()] = "up"
		}(c)
	}
	wg.Wait()

	code := http.StatusOK
	if failed {
		code = http.StatusServiceUnavailable
	}
	render.Status(r, code)
	render.JSON(w, r, map[string]any{"status": status})
}
