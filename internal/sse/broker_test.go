package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/recruitflow/internal/workflow"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	assert.Equal(t, 0, b.ClientCount())

	ch := b.Subscribe(Filter{})
	assert.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(Filter{})
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "ping", Data: map[string]string{"k": "v"}})

	select {
	case msg := <-ch:
		s := string(msg)
		assert.Contains(t, s, "event: ping\n")
		assert.Contains(t, s, `"k":"v"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNotifyThrottlesPipelineUpdates(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(Filter{})
	defer b.Unsubscribe(ch)

	b.Notify(workflow.Event{Type: workflow.EventCandidateAdmitted, CandidateID: "c1"})
	b.Notify(workflow.Event{Type: workflow.EventInterviewScheduled, CandidateID: "c1", InterviewID: "i1"})

	time.Sleep(50 * time.Millisecond)
	var pipeline, workflowEvents int
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventPipelineUpdated) {
			pipeline++
			continue
		}
		workflowEvents++
		assert.Contains(t, s, `"candidate_id":"c1"`)
	}
	assert.Equal(t, 2, workflowEvents)
	assert.Equal(t, 1, pipeline, "pipeline.updated is throttled")
}

func TestBrokerAsEngineNotifier(t *testing.T) {
	var _ workflow.Notifier = (*Broker)(nil)
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, b.ClientCount())

	b.Notify(workflow.Event{Type: workflow.EventInterviewCancelled, InterviewID: "i9"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, "event: interview.cancelled")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, b.ClientCount(), "client cleaned up after disconnect")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe(Filter{})
	defer b.Unsubscribe(ch)

	// More than the client buffer; must not block.
	for range clientBuffer + 6 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	assert.Eventually(t, func() bool { return b.Dropped() == 6 }, time.Second, 10*time.Millisecond)
}

func TestPipelineUpdateTrailingEdge(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(Filter{})
	defer b.Unsubscribe(ch)

	b.Notify(workflow.Event{Type: workflow.EventCandidateAdmitted, CandidateID: "c1"})
	b.Notify(workflow.Event{Type: workflow.EventCandidateAdmitted, CandidateID: "c2"})
	b.Notify(workflow.Event{Type: workflow.EventCandidateUpdated, CandidateID: "c2"})

	time.Sleep(300 * time.Millisecond)
	var pipeline []string
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventPipelineUpdated) {
			pipeline = append(pipeline, s)
		}
	}
	require.Len(t, pipeline, 2)
	assert.Contains(t, pipeline[0], `{"candidates":["c1"]}`)
	assert.Contains(t, pipeline[1], `{"candidates":["c2"]}`)
}

func TestFilterByCandidate(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe(Filter{CandidateID: "c2"})
	defer b.Unsubscribe(ch)

	b.Notify(workflow.Event{Type: workflow.EventCandidateAdmitted, CandidateID: "c1"})
	b.Notify(workflow.Event{Type: workflow.EventCandidateAdmitted, CandidateID: "c2"})
	b.Publish(Event{Type: "broadcast", Data: 1})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	var types []string
	for _, m := range msgs {
		assert.NotContains(t, m, `"candidate_id":"c1"`)
		for _, line := range strings.Split(m, "\n") {
			if typ, ok := strings.CutPrefix(line, "event: "); ok {
				types = append(types, typ)
			}
		}
	}
	assert.Contains(t, types, workflow.EventCandidateAdmitted)
	assert.Contains(t, types, "broadcast")
}

func TestMessagesCarrySequenceIDs(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe(Filter{})
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "a", Data: 1})
	b.Publish(Event{Type: "b", Data: 2})
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "id: 1\n"), msgs[0])
	assert.True(t, strings.HasPrefix(msgs[1], "id: 2\n"), msgs[1])
}

func TestSSEHandlerHeartbeat(t *testing.T) {
	b := NewBroker(time.Hour, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(70 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "retry: 3000\n\n"))
	assert.Contains(t, body, ": keepalive\n\n")
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe(Filter{})
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "subscriber channel closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Equal(t, 0, b.ClientCount())

	b.Publish(Event{Type: "x"})
	b.Notify(workflow.Event{Type: workflow.EventCandidateRemoved})
}
