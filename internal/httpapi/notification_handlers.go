package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

func (a *API) handleNotificationsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	notifs, err := a.svc.Notifications(r.Context())
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": notifs})
}

func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] == "unread-count":
		a.unreadCount(w, r)
	case len(parts) == 1 && parts[0] == "stream":
		a.streamNotifications(w, r)
	case len(parts) == 2 && parts[0] == "applicant" && parts[1] != "":
		a.applicantNotifications(w, r, parts[1])
	case len(parts) == 2 && parts[1] == "read":
		a.markRead(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) applicantNotifications(w http.ResponseWriter, r *http.Request, address string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	notifs, err := a.svc.NotificationsFor(r.Context(), address)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": notifs})
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	if err := a.svc.MarkNotificationRead(r.Context(), id); err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "read"})
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	count, err := a.svc.UnreadCount(r.Context())
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread": count})
}

// streamNotifications handles Server-Sent Events for freshly created
// notifications.
func (a *API) streamNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for n := range ch {
		payload, err := json.Marshal(n)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
