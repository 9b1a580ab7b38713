package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventSurveyRefresh tells sibling views to refetch a survey.
	EventSurveyRefresh = "survey_refresh"
)

// RefreshEvent is the payload of EventSurveyRefresh.
type RefreshEvent struct {
	SurveyID uuid.UUID `json:"survey_id"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Hub maintains survey_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// surveyID -> map[clientID]*Client
	surveys  map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per survey
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSurveyEvent(surveyID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to survey channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSurvey(surveyID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Redis may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		surveys:  make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a survey room. Starts Redis subscription for this survey if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.surveys[c.SurveyID] == nil {
		h.surveys[c.SurveyID] = make(map[string]*Client)
		if h.redisSub != nil {
			surveyID := c.SurveyID
			cancel, err := h.redisSub.SubscribeSurvey(surveyID, func(event string, payload []byte) {
				h.BroadcastToSurvey(surveyID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[surveyID] = cancel
			} else {
				h.logger.Warn("redis subscribe failed", zap.String("survey_id", surveyID.String()), zap.Error(err))
			}
		}
	}
	h.surveys[c.SurveyID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined survey", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// Unregister removes a client from a survey room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.surveys[c.SurveyID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.surveys, c.SurveyID)
			if cancel, ok := h.subs[c.SurveyID]; ok {
				cancel()
				delete(h.subs, c.SurveyID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left survey", zap.String("client_id", c.ID), zap.String("survey_id", c.SurveyID.String()))
}

// BroadcastToSurvey sends a message to all clients watching a survey (local only).
func (h *Hub) BroadcastToSurvey(surveyID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.surveys[surveyID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishToSurvey publishes to Redis so every instance, this one included, broadcasts once.
// Without Redis it broadcasts locally.
func (h *Hub) PublishToSurvey(surveyID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		if err := h.redis.PublishSurveyEvent(surveyID, event, data); err != nil {
			h.logger.Warn("redis publish failed", zap.String("survey_id", surveyID.String()), zap.Error(err))
			h.BroadcastToSurvey(surveyID, event, data)
		}
		return
	}
	h.BroadcastToSurvey(surveyID, event, data)
}

// PublishRefresh announces that a survey changed.
func (h *Hub) PublishRefresh(surveyID uuid.UUID, reason string) {
	h.PublishToSurvey(surveyID, EventSurveyRefresh, RefreshEvent{SurveyID: surveyID, Reason: reason, At: time.Now().UTC()})
}

// WatcherCount returns the number of connected clients watching a survey.
func (h *Hub) WatcherCount(surveyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.surveys[surveyID])
}
