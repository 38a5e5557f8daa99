package remote

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"panelreel/internal/events"
	"panelreel/internal/logging"
)

const writeWait = 5 * time.Second

// Message is one event on the /api/events stream.
type Message struct {
	Type        events.Kind `json:"type"`
	Page        string      `json:"page"`
	Index       *int        `json:"index,omitempty"`
	Visible     *bool       `json:"visible,omitempty"`
	Panel       string      `json:"panel,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	FileName    string      `json:"fileName,omitempty"`
	Action      string      `json:"action,omitempty"`
}

// Encode converts the events tools care about. Other kinds report false.
func Encode(ev events.Event) (Message, bool) {
	switch e := ev.(type) {
	case events.PageVisibility:
		index, visible := e.Index, e.Visible
		return Message{Type: e.Kind(), Page: e.Page.Key(), Index: &index, Visible: &visible}, true
	case events.PanelContentChanged:
		return Message{
			Type:        e.Kind(),
			Page:        e.Page.Key(),
			Panel:       e.Panel,
			ContentType: string(e.Type),
			FileName:    e.FileName,
			Action:      e.Action,
		}, true
	}
	return Message{}, false
}

// streamEvents upgrades to a websocket and forwards notifications until the
// client goes away. Inbound messages are ignored. The tap is registered before
// the handshake completes so nothing published after it is missed.
func (s *Server) streamEvents(c *gin.Context) {
	id := uuid.NewString()
	feed := make(chan events.Event, s.opts.StreamBuffer)
	if err := s.pb.Bus.Tap(id, feed); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = s.pb.Bus.Untap(id) }()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()
	s.logger.Info("event client connected", logging.String(logging.FieldSessionID, id))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			s.logger.Info("event client disconnected", logging.String(logging.FieldSessionID, id))
			return
		case ev := <-feed:
			msg, ok := Encode(ev)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("event write failed",
					logging.String(logging.FieldSessionID, id),
					logging.Error(err),
				)
				return
			}
		}
	}
}
