package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yourusername/gammon/pkg/policy"
)

// SelfPlaySSE streams self-play progress as Server-Sent Events.
// GET /api/selfplay/stream?games=...&workers=...&seed=...&x=...&o=...
func (h *Handlers) SelfPlaySSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := r.URL.Query()
	opts := selfPlayOptions(SelfPlayRequest{
		Games:    parseIntParam(query.Get("games"), 0),
		Workers:  parseIntParam(query.Get("workers"), 0),
		Seed:     int64(parseIntParam(query.Get("seed"), 0)),
		MaxTurns: parseIntParam(query.Get("max_turns"), 0),
		X:        query.Get("x"),
		O:        query.Get("o"),
	})

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	callback := func(p policy.SelfPlayProgress) {
		writeSSEEvent(w, "progress", p)
		flusher.Flush()
	}

	var result *policy.SelfPlayResult
	err := h.pool.TryRunSlow(func() (err error) {
		result, err = policy.SelfPlay(log.Logger.WithContext(r.Context()), opts, callback)
		return err
	})
	if err != nil {
		writeSSEError(w, "self-play failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", SelfPlayResponse{Options: opts, Result: result})
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}
