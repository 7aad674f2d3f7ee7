package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/notargets/growcfd/InputParameters"
	"github.com/notargets/growcfd/model_problems/Climate3D"
	"github.com/notargets/growcfd/types"
)

// Message types. Clients send MsgStart with a case in Content and may send
// MsgStop while it runs; the server answers with the rest.
const (
	MsgStart    = "start"
	MsgStop     = "stop"
	MsgStarted  = "started"
	MsgProgress = "progress"
	MsgResult   = "result"
	MsgStopped  = "stopped"
	MsgError    = "error"
)

const sendBuffer = 64

type Msg struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

type ProgressReport struct {
	Iteration int            `json:"iteration"`
	Step      int            `json:"step,omitempty"`
	Time      float64        `json:"time_s,omitempty"`
	Residual  float64        `json:"residual"`
	State     types.RunState `json:"state"`
}

// Hub serves one websocket connection. At most one case runs at a time.
type Hub struct {
	conn   *websocket.Conn
	logger log.FieldLogger
	send   chan Msg

	mu     sync.Mutex
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

func NewHub(conn *websocket.Conn, logger log.FieldLogger) *Hub {
	return &Hub{
		conn:   conn,
		logger: logger,
		send:   make(chan Msg, sendBuffer),
	}
}

// Run reads requests until the connection fails or closes, then stops any
// running case and drains the replies.
func (h *Hub) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	written := make(chan struct{})
	go func() {
		h.handleResponse()
		close(written)
	}()
	h.handleRequest(ctx)
	h.stopRun()
	h.runs.Wait()
	close(h.send)
	<-written
}

func (h *Hub) handleResponse() {
	for msg := range h.send {
		if err := h.conn.WriteJSON(&msg); err != nil {
			h.logger.WithError(err).Warn("write to client failed")
		}
	}
}

func (h *Hub) handleRequest(ctx context.Context) {
	for {
		var msg Msg
		if err := h.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Warn("read from client failed")
			}
			return
		}
		switch msg.Type {
		case MsgStart:
			if err := h.start(ctx, msg.Content); err != nil {
				h.reply(MsgError, err.Error())
			}
		case MsgStop:
			h.stopRun()
		default:
			h.reply(MsgError, fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

func (h *Hub) start(ctx context.Context, content []byte) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return fmt.Errorf("a case is already running")
	}
	ip := &InputParameters.InputParametersClimate{}
	if err = ip.Parse(content); err != nil {
		return
	}
	cfg, g, bcs, equipment, err := ip.Build()
	if err != nil {
		return
	}
	sr, err := Climate3D.NewSimulationRun(cfg, g, bcs, equipment,
		Climate3D.WithLogger(h.logger.WithField("case", ip.Title)),
		Climate3D.WithObserver(Climate3D.ObserverFunc(h.pushProgress)))
	if err != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.runs.Add(1)
	h.reply(MsgStarted, ip.Title)
	go func() {
		defer h.runs.Done()
		res, err := sr.Solve(runCtx)
		h.mu.Lock()
		h.cancel = nil
		h.mu.Unlock()
		cancel()
		if err != nil {
			h.reply(MsgStopped, err.Error())
		}
		h.reply(MsgResult, res.Summary(ip.Title))
	}()
	return
}

func (h *Hub) stopRun() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// pushProgress drops the report when the client is not keeping up.
func (h *Hub) pushProgress(p Climate3D.Progress) {
	msg, err := newMsg(MsgProgress, ProgressReport{
		Iteration: p.Iteration,
		Step:      p.Step,
		Time:      p.Time,
		Residual:  p.Residual,
		State:     p.State,
	})
	if err != nil {
		return
	}
	select {
	case h.send <- msg:
	default:
	}
}

func (h *Hub) reply(typ string, content interface{}) {
	msg, err := newMsg(typ, content)
	if err != nil {
		h.logger.WithError(err).Error("encoding reply")
		return
	}
	h.send <- msg
}

func newMsg(typ string, content interface{}) (msg Msg, err error) {
	msg.Type = typ
	msg.Content, err = json.Marshal(content)
	return
}
