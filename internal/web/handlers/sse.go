package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SSESource is the interface required by streamSSEEvents to stream events via SSE.
type SSESource interface {
	AddListener() chan FlowEvent
	RemoveListener(ch chan FlowEvent)
	Done() bool
}

// setupSSEConnection validates the request, finds the source, and sets up SSE headers.
// Returns the source, flusher, and true on success. On failure, writes an error response and returns zero values with false.
func setupSSEConnection(w http.ResponseWriter, r *http.Request, lookup func(string) SSESource) (SSESource, http.Flusher, bool) {
	id := chi.URLParam(r, "flowId")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing flow ID")
		return nil, nil, false
	}

	source := lookup(id)
	if source == nil {
		respondError(w, http.StatusNotFound, "flow not found")
		return nil, nil, false
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return source, flusher, true
}

// streamSSEEvents streams events from an SSESource until a terminal event,
// a client disconnect, or the event channel closing. onEvent runs after each
// delivered event.
func streamSSEEvents(w http.ResponseWriter, r *http.Request, lookup func(string) SSESource, initialData func(SSESource) any, onEvent func()) {
	source, flusher, ok := setupSSEConnection(w, r, lookup)
	if !ok {
		return
	}

	eventCh := source.AddListener()
	defer source.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", initialData(source))
	if source.Done() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if onEvent != nil {
				onEvent()
			}
			if isTerminalEvent(event) {
				return
			}
		}
	}
}

// isTerminalEvent returns true for the last event a flow will send.
func isTerminalEvent(event FlowEvent) bool {
	if event.Type == "closed" {
		return true
	}
	st, ok := event.Data.(FlowStatus)
	return ok && st.Completed
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
