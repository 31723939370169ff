// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/protocol"
)

const (
	transportWriteWait = 10 * time.Second
	handshakeTimeout   = 5 * time.Second
	transportReadLimit = 64 * 1024
)

// queuedFrame is one outbound frame held while disconnected.
type queuedFrame struct {
	msgType int
	data    []byte
}

// TransportClient owns the WebSocket link to the ingestion server. All
// traffic funnels through one mutex so frame order is total: queued
// frames flush on reconnect strictly before new traffic, and a capture's
// metadata frame always immediately precedes its binary frame.
//
// Reconnects back off exponentially from the base delay; after the
// attempt cap the client goes dormant and stays offline until WakeUp.
type TransportClient struct {
	url       string
	dial      func() (*websocket.Conn, error)
	limiter   *rate.Limiter
	onMessage func(protocol.Envelope)

	mu       sync.Mutex
	conn     *websocket.Conn
	queue    []queuedFrame
	queueCap int
	attempts int
	dormant  bool
	closed   bool

	base        time.Duration
	maxAttempts int

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewTransportClient builds a client for the given endpoint. onMessage
// receives every decodable server message; nil disables the callback.
func NewTransportClient(url string, spacing time.Duration, queueCap int,
	reconnectBase time.Duration, maxAttempts int, onMessage func(protocol.Envelope)) *TransportClient {

	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}

	t := &TransportClient{
		url:         url,
		limiter:     rate.NewLimiter(limit, 1),
		onMessage:   onMessage,
		queueCap:    queueCap,
		base:        reconnectBase,
		maxAttempts: maxAttempts,
		kick:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	t.dial = func() (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.Dial(t.url, nil)
		return conn, err
	}
	return t
}

// Start launches the connect loop and attempts the first connection.
func (t *TransportClient) Start() {
	t.wg.Add(1)
	go t.connectLoop()
	t.requestConnect()
}

// Send marshals and transmits one control message. While disconnected
// the message joins the bounded outbound queue; a full queue evicts the
// oldest frame. Only marshaling can fail.
func (t *TransportClient) Send(v interface{}) error {
	data, err := protocol.Marshal(v)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendLocked(queuedFrame{websocket.TextMessage, data})
	return nil
}

// SendCapture transmits the capture metadata frame immediately followed
// by the raw image frame. The pair holds the connection lock for both
// writes; the ordering is the server's correlation key.
func (t *TransportClient) SendCapture(meta *protocol.Screenshot, image []byte) error {
	data, err := protocol.Marshal(meta)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		t.enqueueLocked(queuedFrame{websocket.TextMessage, data})
		t.enqueueLocked(queuedFrame{websocket.BinaryMessage, image})
		t.requestConnectLocked()
		return nil
	}

	t.waitSpacing()
	if err := t.writeLocked(websocket.TextMessage, data); err != nil {
		t.dropConnLocked(queuedFrame{websocket.TextMessage, data}, queuedFrame{websocket.BinaryMessage, image})
		return nil
	}
	if err := t.writeLocked(websocket.BinaryMessage, image); err != nil {
		// The metadata may have arrived; resending the pair is safe, the
		// fresh metadata simply replaces the server's pending context.
		t.dropConnLocked(queuedFrame{websocket.TextMessage, data}, queuedFrame{websocket.BinaryMessage, image})
	}
	return nil
}

// WakeUp restarts a dormant reconnect cycle. Called on new activity
// after the backoff budget was exhausted.
func (t *TransportClient) WakeUp() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if t.dormant {
		t.dormant = false
		t.attempts = 0
	}
	need := t.conn == nil
	t.mu.Unlock()

	if need {
		t.requestConnect()
	}
}

// Connected reports whether a live connection is held.
func (t *TransportClient) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// QueueLen reports the outbound queue depth.
func (t *TransportClient) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Close flushes queued frames best-effort within the context deadline,
// sends a close frame, and stops the connect loop.
func (t *TransportClient) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conn := t.conn
	queue := t.queue
	t.conn = nil
	t.queue = nil
	t.mu.Unlock()

	close(t.done)

	if conn != nil {
		deadline := time.Now().Add(transportWriteWait)
		if d, ok := ctx.Deadline(); ok {
			deadline = d
		}
		for _, f := range queue {
			_ = conn.SetWriteDeadline(deadline)
			if err := conn.WriteMessage(f.msgType, f.data); err != nil {
				break
			}
		}
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}

	t.wg.Wait()
}

// sendLocked transmits one frame on the live connection or queues it.
func (t *TransportClient) sendLocked(f queuedFrame) {
	if t.conn == nil {
		t.enqueueLocked(f)
		t.requestConnectLocked()
		return
	}
	t.waitSpacing()
	if err := t.writeLocked(f.msgType, f.data); err != nil {
		t.dropConnLocked(f)
	}
}

// enqueueLocked appends to the bounded queue, evicting oldest on
// overflow.
func (t *TransportClient) enqueueLocked(f queuedFrame) {
	if len(t.queue) >= t.queueCap {
		t.queue = t.queue[1:]
	}
	t.queue = append(t.queue, f)
}

// dropConnLocked abandons the connection after a write failure and
// requeues the frames that did not make it.
func (t *TransportClient) dropConnLocked(requeue ...queuedFrame) {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	for _, f := range requeue {
		t.enqueueLocked(f)
	}
	if !t.closed {
		t.requestConnectLocked()
	}
}

func (t *TransportClient) writeLocked(msgType int, data []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(transportWriteWait))
	return t.conn.WriteMessage(msgType, data)
}

// waitSpacing paces outbound transmissions. A capture pair counts as one
// transmission.
func (t *TransportClient) waitSpacing() {
	_ = t.limiter.Wait(context.Background())
}

func (t *TransportClient) requestConnect() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

func (t *TransportClient) requestConnectLocked() {
	t.requestConnect()
}

// connectLoop serves connect requests until Close.
func (t *TransportClient) connectLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case <-t.kick:
		}
		t.connectCycle()
	}
}

// connectCycle dials with exponential backoff until connected, dormant,
// or closed. On success the queued frames flush in order while the lock
// excludes new traffic.
func (t *TransportClient) connectCycle() {
	for {
		t.mu.Lock()
		if t.closed || t.dormant || t.conn != nil {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		conn, err := t.dial()
		if err != nil {
			t.mu.Lock()
			t.attempts++
			attempts := t.attempts
			if attempts >= t.maxAttempts {
				t.dormant = true
				t.mu.Unlock()
				logging.Warn().Int("attempts", attempts).Msg("reconnect budget exhausted, transport dormant")
				return
			}
			delay := t.base << (attempts - 1)
			t.mu.Unlock()

			logging.Debug().Err(err).Int("attempt", attempts).Dur("backoff", delay).Msg("dial failed")
			select {
			case <-t.done:
				return
			case <-time.After(delay):
			}
			continue
		}

		conn.SetReadLimit(transportReadLimit)

		t.mu.Lock()
		t.attempts = 0
		t.conn = conn
		flushed := true
		for len(t.queue) > 0 {
			f := t.queue[0]
			t.waitSpacing()
			if err := t.writeLocked(f.msgType, f.data); err != nil {
				// The frame stays at the queue front so order survives
				// the next reconnect.
				_ = t.conn.Close()
				t.conn = nil
				t.requestConnectLocked()
				flushed = false
				break
			}
			t.queue = t.queue[1:]
		}
		t.mu.Unlock()

		if flushed {
			logging.Info().Str("url", t.url).Msg("transport connected")
			t.wg.Add(1)
			go t.readPump(conn)
			return
		}
	}
}

// readPump surfaces server messages and notices disconnects.
func (t *TransportClient) readPump(conn *websocket.Conn) {
	defer t.wg.Done()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if t.conn == conn {
				t.conn = nil
				if !t.closed {
					t.requestConnectLocked()
				}
			}
			t.mu.Unlock()
			return
		}
		if msgType != websocket.TextMessage || t.onMessage == nil {
			continue
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			logging.Debug().Err(err).Msg("discarding undecodable server message")
			continue
		}
		t.onMessage(env)
	}
}
