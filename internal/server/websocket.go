package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/overlay"
	"github.com/MeKo-Tech/kyclens/internal/viewer"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// ViewerMessage is exchanged with live viewer clients. Clients send "page",
// "viewport", "load" and "clear"; the server sends "ready", "overlay" and
// "error".
type ViewerMessage struct {
	Type       string               `json:"type"`
	DocumentID string               `json:"document_id,omitempty"`
	Page       int                  `json:"page"`
	PageCount  int                  `json:"page_count,omitempty"`
	Width      float64              `json:"width,omitempty"`
	Height     float64              `json:"height,omitempty"`
	Rects      []overlay.ScreenRect `json:"rects,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// wsWriter serializes writes to one connection.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(msg ViewerMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := w.conn.WriteJSON(msg); err != nil {
		slog.Debug("viewer write failed", "error", err)
		return
	}
	viewerMessages.WithLabelValues("sent").Inc()
}

// viewerHandler streams overlays for the document in the URL. The client
// reports its rendered page size; every change is answered with freshly
// projected rectangles for the visible page.
func (s *Server) viewerHandler(w http.ResponseWriter, r *http.Request) {
	sd, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade viewer connection", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	viewerSessions.Inc()
	defer viewerSessions.Dec()

	out := &wsWriter{conn: conn}
	viewport := &viewer.Viewport{}
	session := viewer.NewSession(viewport,
		viewer.SinkFunc(func(page int, rects []overlay.ScreenRect) {
			if rects == nil {
				rects = []overlay.ScreenRect{}
			}
			overlayRects.Observe(float64(len(rects)))
			out.send(ViewerMessage{Type: "overlay", Page: page, Rects: rects})
		}),
		viewer.WithPollInterval(s.cfg.PollInterval),
		viewer.WithErrorHandler(func(err error) {
			out.send(ViewerMessage{Type: "error", Message: err.Error()})
		}),
	)
	defer session.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session.Ingest(sd.doc.ViewResult())
	out.send(ViewerMessage{Type: "ready", DocumentID: sd.doc.ID, PageCount: sd.doc.PageCount()})
	slog.Info("viewer connected", "document_id", sd.doc.ID, "remote_addr", r.RemoteAddr)

	go keepAlive(ctx, out)
	s.readViewerMessages(ctx, conn, out, session, viewport)
}

func keepAlive(ctx context.Context, out *wsWriter) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) readViewerMessages(ctx context.Context, conn *websocket.Conn, out *wsWriter, session *viewer.Session, viewport *viewer.Viewport) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("viewer connection error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		viewerMessages.WithLabelValues("received").Inc()
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ViewerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			out.send(ViewerMessage{Type: "error", Message: "invalid message"})
			continue
		}
		switch msg.Type {
		case "page":
			session.ShowPage(msg.Page)
		case "viewport":
			viewport.Set(overlay.RenderedSize{Width: msg.Width, Height: msg.Height})
		case "load":
			session.Load(ctx, s.fetcher(msg.DocumentID))
		case "clear":
			session.Clear()
		default:
			out.send(ViewerMessage{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}

// fetcher reads a registered document for the viewer.
func (s *Server) fetcher(id string) viewer.Fetcher {
	return func(context.Context) (*extraction.DocumentResult, error) {
		sd, err := s.docs.Get(id)
		if err != nil {
			return nil, err
		}
		return sd.doc.ViewResult(), nil
	}
}
