package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type recordingNotifier struct {
	mu     sync.Mutex
	name   string
	events []Event
	err    error
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return r.err
}

func sampleEvent() Event {
	return NewEvent(uuid.New(), KindBadgeEarned, "Conquista desbloqueada", "Você ganhou Primeiro Passo", map[string]any{"badge": "Primeiro Passo"}, time.Now())
}

func TestDispatcherFansOutAndSwallowsFailures(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	failing := &recordingNotifier{name: "falha", err: errors.New("fora do ar")}
	d := NewDispatcher(zerolog.Nop(), time.Second, ok, nil, failing)

	ev := sampleEvent()
	d.Emit(context.Background(), ev)
	d.Wait()

	if len(ok.events) != 1 || ok.events[0].ID != ev.ID {
		t.Fatalf("expected event delivered, got %+v", ok.events)
	}
	if len(failing.events) != 1 {
		t.Fatalf("failing notifier should still be called")
	}
}

func TestDispatcherSurvivesCanceledRequest(t *testing.T) {
	rec := &recordingNotifier{name: "ok"}
	d := NewDispatcher(zerolog.Nop(), time.Second, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Emit(ctx, sampleEvent())
	d.Wait()

	if len(rec.events) != 1 {
		t.Fatalf("expected delivery after request cancel")
	}
}

type stubPublisher struct {
	channel  string
	messages [][]byte
}

func (s *stubPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	s.channel = channel
	s.messages = append(s.messages, message.([]byte))
	cmd := redis.NewIntCmd(context.Background())
	cmd.SetVal(1)
	return cmd
}

func TestRedisPublisher(t *testing.T) {
	stub := &stubPublisher{}
	p := NewRedisPublisher(stub, "engajamento:eventos")
	ev := sampleEvent()

	if err := p.Notify(context.Background(), []Event{ev}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if stub.channel != "engajamento:eventos" || len(stub.messages) != 1 {
		t.Fatalf("unexpected publish %q %d", stub.channel, len(stub.messages))
	}
	var got Event
	if err := json.Unmarshal(stub.messages[0], &got); err != nil || got.Kind != KindBadgeEarned {
		t.Fatalf("unexpected payload %s", stub.messages[0])
	}
}

type stubWriter struct {
	msgs []kafka.Message
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error { return nil }

func TestKafkaPublisherKeysByUser(t *testing.T) {
	w := &stubWriter{}
	p := &KafkaPublisher{writer: w}
	ev := sampleEvent()

	if err := p.Notify(context.Background(), []Event{ev}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message")
	}
	if string(w.msgs[0].Key) != ev.UserID.String() {
		t.Fatalf("unexpected key %s", w.msgs[0].Key)
	}
	if NewKafkaPublisher(nil, "topico") != nil {
		t.Fatalf("publisher without brokers must be disabled")
	}
}

func TestSlackNotifier(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlackNotifier(srv.URL)
	if err := s.Notify(context.Background(), []Event{sampleEvent()}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(body, ":medal:") || !strings.Contains(body, "Conquista desbloqueada") {
		t.Fatalf("unexpected slack body %s", body)
	}
	if NewSlackNotifier("") != nil {
		t.Fatalf("empty webhook must disable slack")
	}
}

func TestSlackNotifierReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), []Event{sampleEvent()}); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
