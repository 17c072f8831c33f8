package ws

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	maxFrameSize    = 64 * 1024
	stompVersion    = "1.2"
	msgForbidden    = "forbidden subscription"
	msgNotConnected = "expected CONNECT frame"
	msgMalformed    = "malformed frame"
)

var (
	errDisconnect = errors.New("client disconnected")
	errMalformed  = errors.New(msgMalformed)
)

// Session is one authenticated realtime connection. Only the writer goroutine
// touches the socket for writes.
type Session struct {
	ID     string
	UserID int64

	hub  *Hub
	conn *websocket.Conn
	cfg  Settings

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	connected bool
}

func newSession(sessionID string, userID int64, hub *Hub, conn *websocket.Conn, cfg Settings) *Session {
	return &Session{
		ID:     sessionID,
		UserID: userID,
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue hands raw to the writer. It reports false when the queue is full.
func (s *Session) enqueue(raw []byte) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- raw:
		return true
	default:
		return false
	}
}

// reply queues a control frame. Control frames wait for queue space as long as
// the session is alive.
func (s *Session) reply(f *frame.Frame) {
	raw, err := encodeFrame(f)
	if err != nil {
		slog.Error("realtime: encode frame", "session_id", s.ID, "err", err)
		return
	}
	select {
	case s.send <- raw:
	case <-s.done:
	}
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() { close(s.done) })
}

// readLoop processes inbound frames until the peer leaves, sends DISCONNECT or
// the session is shut down.
func (s *Session) readLoop() error {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		if unterminated(data) {
			s.fail(msgMalformed)
			return errMalformed
		}
		r := frame.NewReader(bytes.NewReader(data))
		for {
			f, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.fail(msgMalformed)
				return err
			}
			if f == nil {
				continue // heart-beat
			}
			if err := s.handle(f); err != nil {
				return err
			}
		}
	}
}

// unterminated reports a message whose last frame lacks its NUL byte. Bare
// EOLs are heart-beats and may trail a frame.
func unterminated(data []byte) bool {
	rest := bytes.TrimRight(data, "\r\n")
	return len(rest) > 0 && rest[len(rest)-1] != 0
}

func (s *Session) handle(f *frame.Frame) error {
	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		s.connected = true
		s.reply(frame.New(frame.CONNECTED,
			frame.Version, stompVersion,
			frame.HeartBeat, "0,0",
		))
		return nil
	}

	if !s.connected {
		s.fail(msgNotConnected)
		return errors.New(msgNotConnected)
	}

	switch f.Command {
	case frame.SUBSCRIBE:
		s.onSubscribe(f)
	case frame.UNSUBSCRIBE:
		subID := f.Header.Get(frame.Id)
		s.hub.unsubscribe(s, subID)
		s.receipt(f)
	case frame.DISCONNECT:
		s.hub.remove(s)
		s.receipt(f)
		return errDisconnect
	default:
		s.reply(errorFrame(f, "unsupported command "+f.Command))
	}
	return nil
}

func (s *Session) onSubscribe(f *frame.Frame) {
	subID := f.Header.Get(frame.Id)
	if subID == "" {
		s.reply(errorFrame(f, "subscription id is required"))
		return
	}
	topic := TopicFromDestination(f.Header.Get(frame.Destination))
	if topic != TopicFor(s.UserID) {
		slog.Warn("realtime: subscription refused", "session_id", s.ID, "user_id", s.UserID, "destination", f.Header.Get(frame.Destination))
		s.reply(errorFrame(f, msgForbidden))
		return
	}
	s.hub.subscribe(s, topic, subID)
	s.receipt(f)
}

func (s *Session) receipt(f *frame.Frame) {
	if r, ok := f.Header.Contains(frame.Receipt); ok {
		s.reply(frame.New(frame.RECEIPT, frame.ReceiptId, r))
	}
}

// fail sends a terminal ERROR frame.
func (s *Session) fail(msg string) {
	s.reply(frame.New(frame.ERROR, frame.Message, msg))
}

func errorFrame(cause *frame.Frame, msg string) *frame.Frame {
	f := frame.New(frame.ERROR, frame.Message, msg)
	if r, ok := cause.Header.Contains(frame.Receipt); ok {
		f.Header.Set(frame.ReceiptId, r)
	}
	return f
}

// writeLoop owns socket writes. After shutdown it flushes what is queued,
// sends a close message and closes the socket.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case raw := <-s.send:
			if err := s.write(websocket.TextMessage, raw); err != nil {
				s.shutdown()
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.shutdown()
				return
			}
		case <-s.done:
			for {
				select {
				case raw := <-s.send:
					if err := s.write(websocket.TextMessage, raw); err != nil {
						return
					}
				default:
					_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}
