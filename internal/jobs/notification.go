package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emrgen/coa/internal/notify"
	"github.com/emrgen/coa/internal/queue"
	"github.com/sirupsen/logrus"
)

const defaultBatch = 20

var emailTypes = map[string]string{
	queue.EventContact:    notify.TypeContact,
	queue.EventSample:     notify.TypeSample,
	queue.EventNewsletter: notify.TypeNewsletter,
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req notify.Request) (string, error)
}

// NotificationJob drains submission events and emails them out. A failed
// email is logged and dropped.
type NotificationJob struct {
	queue      queue.Queue
	dispatcher Dispatcher
	batch      int
}

func NewNotificationJob(q queue.Queue, dispatcher Dispatcher) *NotificationJob {
	return &NotificationJob{queue: q, dispatcher: dispatcher, batch: defaultBatch}
}

func (j *NotificationJob) Name() string {
	return "notifications"
}

func (j *NotificationJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	j.Drain(ctx)
}

// Drain handles every pending event and returns how many emails were sent.
func (j *NotificationJob) Drain(ctx context.Context) int {
	sent := 0
	for {
		events, err := j.queue.Poll(ctx, j.batch)
		// events read before a failed poll are already consumed
		hctx := ctx
		if ctx.Err() != nil {
			hctx = context.WithoutCancel(ctx)
		}
		for _, event := range events {
			if j.handle(hctx, event) {
				sent++
			}
		}
		if err != nil {
			logrus.Errorf("error polling events: %v", err)
			return sent
		}
		if len(events) < j.batch {
			return sent
		}
	}
}

func (j *NotificationJob) handle(ctx context.Context, event *queue.Event) bool {
	emailType, ok := emailTypes[event.Type]
	if !ok {
		logrus.Warnf("ignoring event %s", event.Type)
		return false
	}

	data := make(map[string]any)
	if err := json.Unmarshal(event.Payload, &data); err != nil {
		logrus.Errorf("error decoding %s event: %v", event.Type, err)
		return false
	}
	if _, ok := data["email"]; !ok && event.Key != "" {
		data["email"] = event.Key
	}

	if _, err := j.dispatcher.Dispatch(ctx, notify.Request{Type: emailType, Data: data}); err != nil {
		logrus.Errorf("error sending %s email for %s: %v", emailType, event.Key, err)
		return false
	}
	return true
}
