package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	eventsBuffer = 64
	eventsPing   = 15 * time.Second
)

// streamEvents publica os eventos do limiter como server-sent events.
// ?subject= filtra por sujeito. O stream não respeita o WriteTimeout do servidor;
// um comentário ": ping" periódico mantém proxies e clientes acordados.
func (a *adminAPI) streamEvents(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeError(w, http.StatusNotFound, "events_unavailable", "events are only published by the memory backend")
		return
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		a.logger.Warn("events stream: cannot clear write deadline", zap.Error(err))
	}

	subject := r.URL.Query().Get("subject")
	events, cancel := a.events.Subscribe(eventsBuffer)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		a.logger.Warn("events stream: flush unsupported", zap.Error(err))
		return
	}

	ticker := time.NewTicker(eventsPing)
	defer ticker.Stop()

	var seq int
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if subject != "" && ev.Status.Subject != subject {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			seq++
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", strconv.Itoa(seq), ev.Kind, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
