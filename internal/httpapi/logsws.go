package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/logstore"
	"github.com/dot-do/functions-gateway/internal/model"
)

// LogsStream handles GET /functions/{id}/logs/stream: a websocket live
// tail of new log lines as tier executors append them, per §6's
// SUPPLEMENTED logs-streaming feature.
func (s *Server) LogsStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}
	if s.LogStore == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "log store not configured"))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("logs stream: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	ch := make(chan logstore.Entry, 64)
	unsubscribe := s.LogStore.Subscribe(id, ch)
	defer unsubscribe()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-ch:
			if err := wsjson.Write(ctx, conn, entry); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}
