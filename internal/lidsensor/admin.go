package lidsensor

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP mux
// served at /debug/. These routes exist for bench diagnosis only and are
// served solely when the bridge is started with a -listen address.
func (s *SerialSensor) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// API endpoint to write a raw command to the sensor port.
	debug.HandleSilentFunc("send-command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}

		s.portMu.Lock()
		port := s.port
		s.portMu.Unlock()

		if err := s.sendCommand(port, command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to sensor port", command))
	})

	// Server-Sent Events tail of live angle changes.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		// initial ping to establish the stream
		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case angle, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %.1f\n\n", angle); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
