package forward

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes attaches a status endpoint to the debug mux reporting
// the latest angle and forwarding counters.
func (f *Forwarder) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleSilentFunc("status", func(w http.ResponseWriter, r *http.Request) {
		type status struct {
			LatestAngle *float64 `json:"latest_angle"`
			Summary
		}

		var st status
		if angle, ok := f.LatestAngle(); ok {
			st.LatestAngle = &angle
		}
		st.Summary = f.stats.Summary()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			http.Error(w, "Failed to encode status", http.StatusInternalServerError)
		}
	})
}
