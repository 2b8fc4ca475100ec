package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/khshakilahamed/ads-generator/internal/middleware"
)

const watchWriteTimeout = 10 * time.Second

// Watch upgrades to a websocket and streams the owner's ad changes: first a
// snapshot of the current records, then every committed change as it lands.
func (a *App) Watch(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing owner context")
		return
	}
	if a.Feed == nil {
		a.error(w, http.StatusNotImplemented, "unavailable", "live updates are not configured")
		return
	}

	updates, cancel, err := a.Feed.Subscribe(r.Context(), owner)
	if err != nil {
		a.Logger.Error().Err(err).Str("owner", owner).Msg("feed subscribe failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not open stream")
		return
	}
	defer func() { _ = cancel() }()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	defer conn.Close()

	// snapshot first so the client starts from committed state
	ads, err := a.Repo.ListByOwner(r.Context(), owner)
	if err != nil {
		a.Logger.Error().Err(err).Str("owner", owner).Msg("snapshot load failed")
		return
	}
	snapshot := make([]adResponse, 0, len(ads))
	for i := range ads {
		snapshot = append(snapshot, toAdResponse(&ads[i]))
	}
	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
	if err := conn.WriteJSON(map[string]any{"type": "snapshot", "ads": snapshot}); err != nil {
		return
	}

	// drain client frames so close and ping control messages are processed
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case ad, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(watchWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(map[string]any{"type": "change", "ad": toAdResponse(&ad)}); err != nil {
				return
			}
		}
	}
}
