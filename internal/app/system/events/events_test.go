package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/events"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func TestRecorder(t *testing.T) {
	r := &events.Recorder{}
	ctx := context.Background()

	_ = r.Publish(ctx, events.SubjectUserFollowed, events.UserEvent{UserID: "b", ActorID: "a"})
	_ = r.Publish(ctx, events.SubjectUserUnfollowed, events.UserEvent{UserID: "b", ActorID: "a"})

	subj := r.Subjects()
	if len(subj) != 2 || subj[0] != events.SubjectUserFollowed || subj[1] != events.SubjectUserUnfollowed {
		t.Errorf("subjects = %v", subj)
	}

	r.Err = errors.New("down")
	if err := r.Publish(ctx, events.SubjectUserDeleted, nil); err == nil {
		t.Error("expected configured error")
	}
	if len(r.Events()) != 2 {
		t.Error("failed publish should not be recorded")
	}
}

func TestNop(t *testing.T) {
	var p events.Publisher = events.Nop{}
	if err := p.Publish(context.Background(), events.SubjectUserCreated, struct{}{}); err != nil {
		t.Error(err)
	}
}

// TestNATS_Publish runs against a live server named by GAMERIE_TEST_NATS_URL.
func TestNATS_Publish(t *testing.T) {
	url := os.Getenv("GAMERIE_TEST_NATS_URL")
	if url == "" {
		t.Skip("GAMERIE_TEST_NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(events.SubjectUserDeleted, ch)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Unsubscribe() }()
	_ = sub.Flush()

	pub, err := events.ConnectNATS(url, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), events.SubjectUserDeleted, events.UserEvent{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		var got events.UserEvent
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatal(err)
		}
		if got.UserID != "u1" {
			t.Errorf("UserID = %q", got.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
