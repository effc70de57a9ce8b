package http

import (
	"encoding/json"
	"net/http"

	"kiosk-quiz-service/internal/domain"
	"kiosk-quiz-service/internal/kiosk"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ControllerFactory builds the flow controller for one display.
type ControllerFactory func(displayID string) *kiosk.Controller

// KioskHandler drives a kiosk display over a websocket: screens go out, touch actions come in.
type KioskHandler struct {
	newController ControllerFactory
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

func NewKioskHandler(newController ControllerFactory, logger *zap.Logger) *KioskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KioskHandler{
		newController: newController,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds the connection to a fresh controller for the display.
// The display query parameter selects the persisted identity; reload=1 marks a hard reload.
func (h *KioskHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	displayID := query.Get("display")
	if displayID == "" {
		displayID = uuid.NewString()
	}
	freshLoad := query.Get("reload") == "1" || query.Get("reload") == "true"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("display", displayID))
	ctx := r.Context()

	ctrl := h.newController(displayID)
	defer ctrl.Close()
	if err := ctrl.Boot(ctx, freshLoad); err != nil {
		logger.Warn("boot display", zap.Error(err))
	}

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "screen", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		var actionErr error
		switch inbound.Type {
		case "videoEnded":
			actionErr = ctrl.VideoEnded()
		case "register":
			var form domain.Registration
			if err := json.Unmarshal(inbound.Payload, &form); err != nil {
				send <- errorMessage("invalid register payload")
				continue
			}
			actionErr = ctrl.Register(form)
		case "start":
			actionErr = ctrl.Start(ctx)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
				send <- errorMessage("invalid select payload")
				continue
			}
			actionErr = ctrl.Select(*payload.Option)
		case "next":
			actionErr = ctrl.Next()
		case "retrySubmit":
			actionErr = ctrl.RetrySubmit()
		case "closeLeaderboard":
			actionErr = ctrl.CloseLeaderboard()
		case "clearIdentity":
			actionErr = ctrl.ClearIdentity(ctx)
		default:
			send <- errorMessage("unsupported message type")
			continue
		}

		if actionErr != nil {
			logger.Debug("action rejected", zap.String("type", inbound.Type), zap.Error(actionErr))
			send <- errorMessage(domain.UserMessage(actionErr))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
