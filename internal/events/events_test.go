package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicGateCheckStarted, GateCheckStarted{}); err != nil {
		t.Fatalf("Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}
}

func TestRecordingPublisher(t *testing.T) {
	pub := &RecordingPublisher{}
	ctx := context.Background()

	_ = pub.Publish(ctx, TopicGateCheckStarted, GateCheckStarted{GateCheck: &model.GateCheck{ID: "gc-1"}})
	_ = pub.Publish(ctx, TopicDeficiencyCreated, DeficiencyCreated{Deficiency: &model.Deficiency{ID: "def-1"}})

	topics := pub.Topics()
	if len(topics) != 2 || topics[0] != TopicGateCheckStarted || topics[1] != TopicDeficiencyCreated {
		t.Fatalf("topics = %v", topics)
	}
	var got DeficiencyCreated
	if err := json.Unmarshal(pub.Messages()[1].Data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Deficiency.ID != "def-1" {
		t.Errorf("deficiency id = %q", got.Deficiency.ID)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Subscribe to capture published messages.
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicItemUpdated, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := ItemUpdated{
		LotID:      "lot-7",
		Transition: model.TransitionFramingToRoofing,
		Item:       &model.GateCheckItem{ID: "gci-1", ItemCode: "F1", Result: model.ResultFail},
		Previous:   model.ResultPending,
	}
	if err := pub.Publish(context.Background(), TopicItemUpdated, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got ItemUpdated
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Item.ID != "gci-1" || got.Item.Result != model.ResultFail || got.Previous != model.ResultPending {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	gc := &model.GateCheck{ID: "gc-1", Status: model.StatusFailed}
	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicGateCheckStarted, GateCheckStarted{GateCheck: gc}},
		{TopicGateCheckCompleted, GateCheckCompleted{GateCheck: gc, Blocking: []string{"F1"}}},
		{TopicGateCheckCancelled, GateCheckCancelled{GateCheck: gc, Reason: "rain"}},
		{TopicDeficiencyResolved, DeficiencyResolved{Deficiency: &model.Deficiency{ID: "def-1"}}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	for i := 0; i < 4; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicGateCheckStarted, GateCheckStarted{}); err == nil {
		t.Fatal("expected error publishing with a cancelled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicGateCheckStarted, GateCheckStarted{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestMatchTopic(t *testing.T) {
	for _, tc := range []struct {
		pattern, topic string
		want           bool
	}{
		{"gatecheck.started", "gatecheck.started", true},
		{"gatecheck.*", "gatecheck.started", true},
		{"gatecheck.*", "gatecheck.item.updated", false},
		{"gatecheck.>", "gatecheck.item.updated", true},
		{TopicAll, TopicDeficiencyResolved, true},
		{"gatecheck.>", "gatecheck", false},
		{"gatecheck.*.updated", "gatecheck.item.updated", true},
		{"gatecheck.deficiency.*", "gatecheck.completed", false},
		{"other.>", "gatecheck.started", false},
	} {
		t.Run(tc.pattern+"|"+tc.topic, func(t *testing.T) {
			if got := MatchTopic(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("MatchTopic(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

func TestTopics_AllMatchTopicAll(t *testing.T) {
	seen := map[string]bool{}
	for _, topic := range Topics {
		if !MatchTopic(TopicAll, topic) {
			t.Errorf("TopicAll does not match %q", topic)
		}
		if seen[topic] {
			t.Errorf("duplicate topic %q", topic)
		}
		seen[topic] = true
	}
}
