package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleEvents streams every derived output as server-sent events. Each
// event carries the full current value; clients replace rather than merge.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	plans := s.pipe.Plans().Subscribe(ctx)
	streak := s.pipe.Streak().Subscribe(ctx)
	cards := s.pipe.Cards().Subscribe(ctx)
	weekly := s.pipe.Weekly().Subscribe(ctx)

	for {
		var event string
		var data any
		select {
		case <-ctx.Done():
			return
		case v, ok := <-plans:
			if !ok {
				return
			}
			event, data = "plans", v
		case v, ok := <-streak:
			if !ok {
				return
			}
			event, data = "streak", map[string]int{"streak": v}
		case v, ok := <-cards:
			if !ok {
				return
			}
			event, data = "cards", v
		case v, ok := <-weekly:
			if !ok {
				return
			}
			event, data = "weekly", v
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, mustJSON(data))
		flusher.Flush()
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
