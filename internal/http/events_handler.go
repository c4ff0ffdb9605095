package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/monitor-scheduler/internal/domain"
	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/notify"
)

const (
	eventsWriteWait    = 7 * time.Second
	eventsPongWait     = 60 * time.Second
	eventsPingInterval = eventsPongWait * 9 / 10
	eventsReadLimit    = 512
)

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type eventSource interface {
	Subscribe(topics ...notify.Topic) *notify.Subscription
}

// EventsHandler streams bus events to websocket clients so open dashboards
// refresh when schedules, entries or reports change.
type EventsHandler struct {
	source       eventSource
	calendar     interval.Calendar
	pingInterval time.Duration
	logger       *slog.Logger
}

func NewEventsHandler(source eventSource, cal interval.Calendar, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		source:       source,
		calendar:     cal,
		pingInterval: eventsPingInterval,
		logger:       defaultLogger(logger),
	}
}

// Stream upgrades the request and forwards events until either side goes
// away. ?topics=a,b narrows the subscription; no topics means all.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var topics []notify.Topic
	for _, topic := range parseCSV(r.URL.Query().Get("topics")) {
		topics = append(topics, notify.Topic(topic))
	}

	logger := handlerLogger(r.Context(), h.logger, "EventsHandler", "Stream", "topics", len(topics))
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.source.Subscribe(topics...)
	defer sub.Close()

	logger.InfoContext(r.Context(), "event stream opened")
	defer logger.InfoContext(r.Context(), "event stream closed")

	closed := readUntilClosed(conn)
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(eventsWriteWait))
				return
			}
			if err := h.write(r.Context(), conn, ev); err != nil {
				logger.DebugContext(r.Context(), "event write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, ev notify.Event) error {
	raw, err := json.Marshal(toEventDTO(h.calendar, ev))
	if err != nil {
		handlerLogger(ctx, h.logger, "EventsHandler", "Stream").ErrorContext(ctx, "failed to encode event", "topic", ev.Topic, "error", err)
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// readUntilClosed drains client frames so control messages are processed,
// and closes the returned channel once the peer disconnects.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	conn.SetReadLimit(eventsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

type eventDTO struct {
	Topic      notify.Topic `json:"topic"`
	OccurredAt string       `json:"occurred_at"`
	Payload    any          `json:"payload,omitempty"`
}

func toEventDTO(cal interval.Calendar, ev notify.Event) eventDTO {
	dto := eventDTO{Topic: ev.Topic, OccurredAt: formatLocal(cal, ev.OccurredAt)}
	switch payload := ev.Payload.(type) {
	case domain.Schedule:
		dto.Payload = toScheduleDTO(cal, payload)
	case []domain.Schedule:
		dto.Payload = toScheduleDTOs(cal, payload)
	case domain.RoomEntry:
		dto.Payload = toEntryDTO(cal, payload)
	case string:
		dto.Payload = map[string]string{"id": payload}
	default:
		dto.Payload = payload
	}
	return dto
}
