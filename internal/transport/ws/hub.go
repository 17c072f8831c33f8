package ws

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/garage-notify/internal/pkg/id"
	"github.com/go-stomp/stomp/v3/frame"
)

const (
	topicPrefix       = "notifications."
	destinationPrefix = "/topic/"
)

// TopicFor names the private topic of a user.
func TopicFor(userID int64) string {
	return topicPrefix + strconv.FormatInt(userID, 10)
}

// TopicFromDestination reduces a STOMP destination to a topic name. Both
// "/topic/notifications.42" and "notifications.42" map to "notifications.42".
func TopicFromDestination(dest string) string {
	return strings.TrimPrefix(strings.TrimSpace(dest), destinationPrefix)
}

// Hub is the process-wide topic registry. It is empty at start, gains entries
// on SUBSCRIBE and loses every entry of a session when the session ends.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*Session]map[string]struct{} // topic -> session -> subscription ids
	sessions map[*Session]struct{}
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		topics:   make(map[string]map[*Session]map[string]struct{}),
		sessions: make(map[*Session]struct{}),
	}
}

// Publish sends payload as a JSON MESSAGE to every subscriber of the user's
// topic. It never blocks on a slow session and is a no-op without subscribers.
func (h *Hub) Publish(userID int64, payload any) {
	topic := TopicFor(userID)

	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.topics[topic]
	if len(subs) == 0 {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("realtime: encode payload", "user_id", userID, "err", err)
		return
	}
	for s, ids := range subs {
		for subID := range ids {
			raw, err := encodeFrame(messageFrame(topic, subID, body))
			if err != nil {
				slog.Error("realtime: encode frame", "session_id", s.ID, "err", err)
				continue
			}
			if !s.enqueue(raw) {
				slog.Warn("realtime: session queue full, frame dropped", "session_id", s.ID, "user_id", userID)
			}
		}
	}
}

// SubscriberCount returns how many sessions currently listen on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close ends every session and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
}

func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}
	return true
}

func (h *Hub) subscribe(s *Session, topic, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Session]map[string]struct{})
		h.topics[topic] = subs
	}
	ids, ok := subs[s]
	if !ok {
		ids = make(map[string]struct{})
		subs[s] = ids
	}
	ids[subID] = struct{}{}
}

func (h *Hub) unsubscribe(s *Session, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, subs := range h.topics {
		ids, ok := subs[s]
		if !ok {
			continue
		}
		delete(ids, subID)
		if len(ids) == 0 {
			delete(subs, s)
		}
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// remove drops the session and all of its subscriptions.
func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s)
	for topic, subs := range h.topics {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func messageFrame(topic, subID string, body []byte) *frame.Frame {
	f := frame.New(frame.MESSAGE,
		frame.Destination, destinationPrefix+topic,
		frame.Subscription, subID,
		frame.MessageId, id.New(),
		frame.ContentType, "application/json",
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	return f
}

func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
