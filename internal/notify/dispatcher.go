package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/pkg/metrics"
)

// Publisher 业务层依赖的通知发布接口
// Dispatch 不阻塞调用方，返回 false 表示消息被丢弃
type Publisher interface {
	Dispatch(msg Message) bool
}

// sendTimeout 单条消息的投递超时
const sendTimeout = 15 * time.Second

// Dispatcher 有界队列 + 固定数量 worker 的异步通知分发器
// 投递失败只记录日志与指标，不回传给触发通知的业务操作
type Dispatcher struct {
	sink   Sink
	queue  chan Message
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher 创建分发器，调用 Start 后开始消费
func NewDispatcher(sink Sink, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sink:   sink,
		queue:  make(chan Message, queueSize),
		logger: logger,
	}
}

// Start 启动 workers 个消费协程
func (d *Dispatcher) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
}

func (d *Dispatcher) run(id int) {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(id, msg)
	}
}

func (d *Dispatcher) deliver(worker int, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			d.logger.Error("通知投递 panic",
				zap.Int("worker", worker),
				zap.String("template", msg.Template),
				zap.Any("panic", r),
			)
		}
	}()

	if err := d.sink.Send(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.logger.Warn("通知投递失败",
			zap.Int("worker", worker),
			zap.String("to", msg.RecipientEmail),
			zap.String("template", msg.Template),
			zap.Error(err),
		)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// Dispatch 非阻塞入队；队列已满或分发器已关闭时丢弃并返回 false
func (d *Dispatcher) Dispatch(msg Message) bool {
	if msg.RecipientEmail == "" {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("通知队列已满，消息被丢弃",
			zap.String("to", msg.RecipientEmail),
			zap.String("template", msg.Template),
		)
		return false
	}
}

// Stop 停止接收新消息并等待队列排空，ctx 到期时直接返回
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
