// internal/handlers/qr.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

// ServeRoomQR renders a PNG QR code for a live room's join URL, handling
// GET /rooms/{id}/qr. Dead or unknown room ids return 404 so stale codes
// stop scanning cleanly.
func ServeRoomQR(logger *logrus.Logger, srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "rooms" || parts[2] != "qr" {
			http.NotFound(w, r)
			return
		}
		roomID := parts[1]

		if _, ok := srv.Registry.GetRoom(roomID); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		joinURL := fmt.Sprintf("%s://%s/?room=%s", scheme, r.Host, roomID)

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			logger.Errorf("qr encode failed for room %s: %v", roomID, err)
			http.Error(w, "qr encoding failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// ServeHealthCheck reports liveness.
func ServeHealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}
