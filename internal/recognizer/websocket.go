package recognizer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"botlang/internal/errors"
	"botlang/internal/recognize"
)

// wireRequest/wireResponse are the one JSON request/response pair
// exchanged per turn over the connection this recognizer keeps open.
type wireRequest struct {
	Utterance string                         `json:"utterance"`
	Intents   []recognize.IntentCatalogEntry `json:"intents"`
	State     string                         `json:"state"`
	Globals   map[string]string              `json:"globals"`
}

type wireResponse struct {
	Intent     string             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Entities   map[string]string  `json:"entities"`
	Error      string             `json:"error,omitempty"`
}

// WebSocket dials a classification service once and, for each
// Recognize call, sends one JSON request and awaits one JSON
// response over that same connection — generalized from the
// connect/send/receive/close lifecycle a byte-oriented websocket
// client uses, to this one request/response protocol.
type WebSocket struct {
	url     string
	dialer  *websocket.Dialer
	timeout time.Duration
	log     *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	return &WebSocket{
		url:     url,
		dialer:  websocket.DefaultDialer,
		timeout: timeout,
		log:     slog.Default(),
	}
}

func (w *WebSocket) connect() (*websocket.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn, nil
	}
	conn, _, err := w.dialer.Dial(w.url, nil)
	if err != nil {
		return nil, err
	}
	w.log.Info("connected to intent recognizer", "url", w.url)
	w.conn = conn
	return conn, nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// Recognize implements recognize.IntentRecognizer. Per spec's
// ExternalError rule, any failure talking to the service is surfaced
// to the script as an "unknown" intent rather than propagated — the
// failure is only reported as a warning on the recognizer's slog logger.
func (w *WebSocket) Recognize(utterance string, intents []recognize.IntentCatalogEntry, ctx recognize.Context) (recognize.Result, error) {
	result, err := w.roundTrip(utterance, intents, ctx)
	if err != nil {
		w.log.Warn("intent recognizer request failed, surfacing as unknown", "error", err)
		return recognize.Result{Intent: "unknown", Confidence: 0, Entities: map[string]string{}}, nil
	}
	return result, nil
}

func (w *WebSocket) roundTrip(utterance string, intents []recognize.IntentCatalogEntry, ctx recognize.Context) (recognize.Result, error) {
	conn, err := w.connect()
	if err != nil {
		return recognize.Result{}, fmt.Errorf("dial: %w", err)
	}

	req := wireRequest{Utterance: utterance, Intents: intents, State: ctx.StateName, Globals: ctx.Globals}
	if w.timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(w.timeout))
		conn.SetReadDeadline(time.Now().Add(w.timeout))
	}
	if err := conn.WriteJSON(req); err != nil {
		w.invalidate()
		return recognize.Result{}, fmt.Errorf("write: %w", err)
	}

	var resp wireResponse
	if err := conn.ReadJSON(&resp); err != nil {
		w.invalidate()
		return recognize.Result{}, fmt.Errorf("read: %w", err)
	}
	if resp.Error != "" {
		return recognize.Result{}, errors.External(0, "recognizer service error: %s", resp.Error)
	}
	if resp.Entities == nil {
		resp.Entities = map[string]string{}
	}
	return recognize.Result{Intent: resp.Intent, Confidence: resp.Confidence, Entities: resp.Entities}, nil
}

func (w *WebSocket) invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
