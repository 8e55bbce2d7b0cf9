package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// WSHandler drives one quiz attempt per websocket connection. The connection
// acts as the host poll loop: a per-connection ticker feeds the session's
// synchronous tick transition once a second.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name string `json:"name"`
}

type selectPayload struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type questionPayload struct {
	Index    int      `json:"index"`
	Total    int      `json:"total"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
	Answered int      `json:"answered"`
}

type timePayload struct {
	Remaining string `json:"remaining"` // "MM:SS"
	Urgency   string `json:"urgency"`   // nominal | warning | critical
}

type resultPayload struct {
	Score    int    `json:"score"`
	Tier     string `json:"tier"`
	TimeUsed string `json:"timeUsed"`
	Saved    bool   `json:"saved"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the quiz message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// One session per connection; replaced when the client starts over.
	// The key is shared between the read loop and the tick loop.
	var (
		keyMu      sync.Mutex
		sessionKey string
	)
	currentKey := func() string {
		keyMu.Lock()
		defer keyMu.Unlock()
		return sessionKey
	}
	setKey := func(k string) {
		keyMu.Lock()
		sessionKey = k
		keyMu.Unlock()
	}
	defer func() {
		if key := currentKey(); key != "" {
			h.service.Leave(key)
		}
	}()

	// The tick loop polls the timer for whatever session the connection
	// currently owns. Expiry is delivered like a submit result.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				key := currentKey()
				if key == "" {
					continue
				}
				res, err := h.service.Tick(r.Context(), key, time.Now())
				if errors.Is(err, domain.ErrSessionNotFound) {
					continue
				}
				if res.Expired {
					saved := err == nil
					if !saved {
						h.trySend(send, closeSignals, outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: "attempt expired but could not be saved"}})
					}
					h.trySend(send, closeSignals, outboundMessage[any]{Type: "expired", Payload: resultPayload{
						Score:    res.Record.Score,
						Tier:     string(res.Record.Tier),
						TimeUsed: res.Record.TimeUsed,
						Saved:    saved,
					}})
					continue
				}
				if res.View.Phase == domain.PhaseRunning {
					h.trySend(send, closeSignals, outboundMessage[any]{Type: "time", Payload: timeView(res.View.Remaining, h.service.Duration())})
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The read loop closes closeSignals itself, so its sends unblock on the
	// writer's exit instead.
	reply := func(msg outboundMessage[any]) { h.trySend(send, writerDone, msg) }

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(errMsg("invalid start payload"))
				continue
			}
			view, err := h.service.Start(r.Context(), payload.Name, currentKey())
			if err != nil {
				reply(h.classify(err))
				continue
			}
			setKey(view.Key)
			reply(outboundMessage[any]{Type: "question", Payload: questionView(view)})
			reply(outboundMessage[any]{Type: "time", Payload: timeView(view.Remaining, h.service.Duration())})
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(errMsg("invalid select payload"))
				continue
			}
			view, err := h.service.SelectAnswer(currentKey(), payload.Index, payload.Option)
			if err != nil {
				reply(h.classify(err))
				continue
			}
			reply(outboundMessage[any]{Type: "question", Payload: questionView(view)})
		case "next":
			view, err := h.service.Advance(currentKey())
			if err != nil {
				reply(h.classify(err))
				continue
			}
			reply(outboundMessage[any]{Type: "question", Payload: questionView(view)})
		case "prev":
			view, err := h.service.Retreat(currentKey())
			if err != nil {
				reply(h.classify(err))
				continue
			}
			reply(outboundMessage[any]{Type: "question", Payload: questionView(view)})
		case "submit":
			record, err := h.service.Submit(r.Context(), currentKey())
			if err != nil && !errors.Is(err, domain.ErrPersistence) {
				reply(h.classify(err))
				continue
			}
			saved := err == nil
			if !saved {
				reply(outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: "result could not be saved"}})
			}
			reply(outboundMessage[any]{Type: "completed", Payload: resultPayload{
				Score:    record.Score,
				Tier:     string(record.Tier),
				TimeUsed: record.TimeUsed,
				Saved:    saved,
			}})
		default:
			reply(errMsg("unsupported message type"))
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

// trySend enqueues msg unless stop is closed first, so a dead consumer never
// wedges the sender once the buffer fills.
func (h *WSHandler) trySend(send chan<- outboundMessage[any], stop <-chan struct{}, msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-stop:
	}
}

// classify splits recoverable gate/validation failures (surfaced as warnings
// the UI can act on) from hard errors.
func (h *WSHandler) classify(err error) outboundMessage[any] {
	switch {
	case errors.Is(err, domain.ErrAnswerRequired),
		errors.Is(err, domain.ErrEmptyUser),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrNotRunning):
		return outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: err.Error()}}
	default:
		return errMsg(err.Error())
	}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

func questionView(view app.SessionView) questionPayload {
	return questionPayload{
		Index:    view.Index,
		Total:    view.Total,
		Text:     view.QuestionText,
		Options:  view.Options,
		Selected: view.Selected,
		Answered: view.Answered,
	}
}

// timeView renders the countdown with its visual urgency tier: nominal above
// 60% remaining, warning between 30% and 60% inclusive, critical below 30%.
func timeView(remaining, total time.Duration) timePayload {
	urgency := "nominal"
	if total > 0 {
		fraction := float64(remaining) / float64(total)
		switch {
		case fraction < 0.3:
			urgency = "critical"
		case fraction <= 0.6:
			urgency = "warning"
		}
	}
	seconds := int(remaining.Seconds())
	return timePayload{
		Remaining: fmt.Sprintf("%02d:%02d", seconds/60, seconds%60),
		Urgency:   urgency,
	}
}
