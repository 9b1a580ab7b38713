package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishSurveyEvent(surveyID uuid.UUID, event string, payload []byte) error {
	f.events = append(f.events, event)
	return f.err
}

func watcher(h *Hub, surveyID uuid.UUID) *Client {
	c := &Client{ID: uuid.New().String(), SurveyID: surveyID, hub: h, send: make(chan WSMessage, 4)}
	h.Register(c)
	return c
}

func TestPublishRefreshLocal(t *testing.T) {
	h := NewHub(nil, nil, nil)
	surveyID := uuid.New()
	c := watcher(h, surveyID)
	other := watcher(h, uuid.New())

	h.PublishRefresh(surveyID, "question_created")

	select {
	case msg := <-c.send:
		if msg.Event != EventSurveyRefresh {
			t.Fatalf("unexpected event %q", msg.Event)
		}
		var ev RefreshEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.SurveyID != surveyID || ev.Reason != "question_created" {
			t.Errorf("unexpected payload %+v", ev)
		}
	default:
		t.Fatal("expected a refresh event")
	}
	if len(other.send) != 0 {
		t.Error("watchers of other surveys must not be notified")
	}
}

func TestPublishRefreshViaRedis(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHub(nil, pub, nil)
	surveyID := uuid.New()
	c := watcher(h, surveyID)

	h.PublishRefresh(surveyID, "questions_reordered")
	if len(pub.events) != 1 || pub.events[0] != EventSurveyRefresh {
		t.Fatalf("expected one redis publish, got %v", pub.events)
	}
	if len(c.send) != 0 {
		t.Error("redis subscriber performs the local broadcast")
	}

	pub.err = errors.New("redis down")
	h.PublishRefresh(surveyID, "questions_reordered")
	if len(c.send) != 1 {
		t.Error("failed publish should fall back to local broadcast")
	}
}

func TestUnregister(t *testing.T) {
	h := NewHub(nil, nil, nil)
	surveyID := uuid.New()
	c := watcher(h, surveyID)
	if h.WatcherCount(surveyID) != 1 {
		t.Fatal("expected one watcher")
	}
	h.Unregister(c)
	if h.WatcherCount(surveyID) != 0 {
		t.Error("expected no watchers")
	}
}
