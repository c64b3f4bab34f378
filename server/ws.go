package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remoproj/remo/task"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The mobile app and local tooling connect from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSink adapts a websocket connection to the recorder's sink. Writes are
// serialized because the recorder and the status path can race.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// handleRecord runs one interactive recording session over a WebSocket. The
// session streams recorded DOM events to the client and ends when the user
// closes the browser page or the client disconnects.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	userID := r.PathValue("user_id")

	// Browsers can't set headers on the upgrade request, so auth rides in
	// a query parameter when it is enabled at all.
	if s.cfg.Auth.AdminUser != "" {
		if _, err := verifyJWT(s.jwtSecret(), r.URL.Query().Get("token")); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	url := s.cfg.Recorder.DefaultURL
	t, err := s.tasks.Get(taskID)
	switch {
	case err == nil:
		if t.URL != "" {
			url = t.URL
		}
	case errors.Is(err, task.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "task not found")
		return
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Error("websocket upgrade", slog.Any("err", err))
		return
	}
	defer conn.Close()

	s.logger.Info("recording session opened",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
		slog.String("url", url),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client never sends data frames, but reading is what
	// detects a disconnect and services control frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.recorder.Record(ctx, url, &wsSink{conn: conn}); err != nil {
		s.logger.Error("recording session failed",
			slog.String("task_id", taskID),
			slog.Any("err", err),
		)
	}

	s.logger.Info("recording session closed", slog.String("task_id", taskID))
}
