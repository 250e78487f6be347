package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

// QueueGroup load-balances tasks across worker processes.
const QueueGroup = "dicoevent-mail"

// Connect opens a named NATS connection that keeps reconnecting.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warning("NATS disconnected: ", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected to ", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("Connected to NATS at ", nc.ConnectedUrl())
	return nc, nil
}

// NatsDispatcher publishes tasks for a separate worker process.
type NatsDispatcher struct {
	conn     *nats.Conn
	subject  string
	timeout  time.Duration
	enqueued atomic.Int64
}

func NewNatsDispatcher(conn *nats.Conn, subject string, timeout time.Duration) *NatsDispatcher {
	return &NatsDispatcher{conn: conn, subject: subject, timeout: timeout}
}

func (d *NatsDispatcher) Enqueue(ctx context.Context, task Task) error {
	if d.conn == nil || d.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := d.conn.Publish(d.subject, data); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.conn.FlushWithContext(ctx); err != nil {
		return err
	}
	d.enqueued.Inc()
	return nil
}

func (d *NatsDispatcher) Stats() (enqueued, delivered, failed int64) {
	return d.enqueued.Load(), 0, 0
}

func (d *NatsDispatcher) Close() error {
	if d.conn != nil && !d.conn.IsClosed() {
		return d.conn.Drain()
	}
	return nil
}

// Worker consumes tasks from NATS and hands them to a Handler.
type Worker struct {
	conn    *nats.Conn
	subject string
	handler *Handler

	delivered atomic.Int64
	failed    atomic.Int64
}

func NewWorker(conn *nats.Conn, subject string, handler *Handler) *Worker {
	return &Worker{conn: conn, subject: subject, handler: handler}
}

// Run subscribes and blocks until ctx is cancelled, then drains.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.conn.QueueSubscribe(w.subject, QueueGroup, func(msg *nats.Msg) {
		w.process(ctx, msg.Data)
	})
	if err != nil {
		return err
	}
	logger.Infof("Worker listening on %s (queue %s)", w.subject, QueueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		logger.Warning("Failed to drain subscription: ", err)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, data []byte) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		w.failed.Inc()
		logger.Error("Dropping malformed task: ", err)
		return
	}
	logger.Infof("Sending %s to %s for %s, registration ID: %s", task.Kind, task.Email, task.Name, task.RegistrationId)
	if err := w.handler.Handle(context.WithoutCancel(ctx), task); err != nil {
		w.failed.Inc()
		logger.Errorf("Failed to deliver %s for registration %s: %v", task.Kind, task.RegistrationId, err)
		return
	}
	w.delivered.Inc()
}

func (w *Worker) Stats() (delivered, failed int64) {
	return w.delivered.Load(), w.failed.Load()
}
