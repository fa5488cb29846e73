package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu      sync.Mutex
	sent    []Message
	failFor string
	block   chan struct{}
}

func (s *recordingSink) Send(_ context.Context, msg Message) error {
	if s.block != nil {
		<-s.block
	}
	if msg.RecipientEmail == s.failFor {
		return errors.New("provider unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 16, zap.NewNop())
	d.Start(2)

	for i := 0; i < 10; i++ {
		ok := d.Dispatch(Message{RecipientEmail: "a@example.com", Template: TemplateRequestStatus})
		require.True(t, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.Equal(t, 10, sink.count())
}

func TestDispatcher_SinkFailureDoesNotPropagate(t *testing.T) {
	sink := &recordingSink{failFor: "down@example.com"}
	d := NewDispatcher(sink, 4, zap.NewNop())
	d.Start(1)

	assert.True(t, d.Dispatch(Message{RecipientEmail: "down@example.com", Template: TemplateRequestStatus}))
	assert.True(t, d.Dispatch(Message{RecipientEmail: "ok@example.com", Template: TemplateRequestStatus}))

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 1, sink.count())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, zap.NewNop())
	d.Start(1)

	// worker 取走第一条后阻塞，第二条占满队列，第三条被丢弃
	assert.True(t, d.Dispatch(Message{RecipientEmail: "1@example.com"}))
	assert.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, d.Dispatch(Message{RecipientEmail: "2@example.com"}))
	assert.False(t, d.Dispatch(Message{RecipientEmail: "3@example.com"}))

	close(sink.block)
	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 2, sink.count())
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, 4, zap.NewNop())
	d.Start(1)
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Dispatch(Message{RecipientEmail: "late@example.com"}))
	// 重复 Stop 不应 panic
	assert.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_SkipsEmptyRecipient(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, 4, zap.NewNop())
	assert.False(t, d.Dispatch(Message{Template: TemplateRequestStatus}))
}

func TestRender(t *testing.T) {
	r, err := Render(Message{
		RecipientName:  "李雷",
		RecipientEmail: "lilei@example.com",
		Template:       TemplateRequestStatus,
		Fields: map[string]string{
			"RequestType": "取消班次",
			"Status":      "通过",
			"Penalty":     "评分 4.5 → 4.2",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, r.Subject, "取消班次")
	assert.Contains(t, r.Text, "李雷")
	assert.Contains(t, r.Text, "评分 4.5 → 4.2")
	assert.NotContains(t, r.Text, "审批意见")
	assert.Contains(t, r.HTML, "<strong>通过</strong>")
}

func TestRender_EscapesHTML(t *testing.T) {
	r, err := Render(Message{
		RecipientName: "<b>x</b>",
		Template:      TemplateShiftAssignment,
		Fields:        map[string]string{"ProjectName": "A&B"},
	})
	require.NoError(t, err)
	assert.Contains(t, r.HTML, "&lt;b&gt;x&lt;/b&gt;")
	assert.Contains(t, r.Text, "<b>x</b>")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render(Message{Template: "nope"})
	assert.Error(t, err)
}
