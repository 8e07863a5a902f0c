package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketplace_v1_202610/pkg/metrics"
)

// 通知事件
const (
	EventWelcome        = "user.welcome"
	EventOrderConfirmed = "order.confirmed"
	EventOrderPaid      = "order.paid"
	EventOrderStatus    = "order.status"
	EventFeedImported   = "feed.imported"
)

// Message 一条待投递的通知
type Message struct {
	Event     string    `json:"event"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier 业务侧使用的通知入口，调用方不等待投递结果
type Notifier interface {
	Notify(msg Message)
}

// Sender 具体投递通道
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ==================== 异步分发 ====================

type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher 有界队列 + 固定 worker
// 队列满时丢弃并记录，投递失败只记日志，不影响触发方
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Registry
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, log *zap.Logger, reg *metrics.Registry, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		sender:  sender,
		log:     log.Named("notify"),
		metrics: reg,
		timeout: opts.SendTimeout,
		queue:   make(chan Message, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("dispatcher stopped, notification dropped", zap.String("event", msg.Event))
		d.metrics.IncNotify("dropped")
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.log.Warn("notification queue full, dropped",
			zap.String("event", msg.Event),
			zap.String("recipient", msg.Recipient))
		d.metrics.IncNotify("dropped")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification sender panic", zap.Any("panic", r), zap.String("event", msg.Event))
			d.metrics.IncNotify("failed")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Warn("notification delivery failed",
			zap.String("event", msg.Event),
			zap.String("recipient", msg.Recipient),
			zap.Error(err))
		d.metrics.IncNotify("failed")
		return
	}
	d.metrics.IncNotify("sent")
}

// Stop 停止接收新消息，并等待队列中已有消息投递完
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}

// ==================== 日志通道 ====================

// LogSender 仅写日志，用于开发环境
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("notification",
		zap.String("event", msg.Event),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject))
	return nil
}

// Nop 丢弃所有通知
type Nop struct{}

func (Nop) Notify(Message) {}
