package auth

import (
	"github.com/google/uuid"
)

// CompletionEvent is delivered after the coordinator processes an
// authorization callback for a session.
type CompletionEvent struct {
	ID         string            `json:"id"`
	ContextID  string            `json:"contextID"`
	ServerName string            `json:"serverName"`
	State      string            `json:"state"`
	Success    bool              `json:"success"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Subscriber receives completion events. Deliveries are best-effort and
// serialized per coordinator; a panicking subscriber never blocks progress.
type Subscriber interface {
	OnCompletion(event *CompletionEvent)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(event *CompletionEvent)

func (f SubscriberFunc) OnCompletion(event *CompletionEvent) { f(event) }

// Subscribe registers a completion subscriber.
func (c *Coordinator) Subscribe(subscriber Subscriber) {
	c.subscriberMux.Lock()
	defer c.subscriberMux.Unlock()
	c.subscribers = append(c.subscribers, subscriber)
}

// publish delivers the event to every subscriber in registration order,
// holding the delivery lock so completion order is preserved.
func (c *Coordinator) publish(event *CompletionEvent) {
	event.ID = uuid.NewString()
	c.subscriberMux.Lock()
	subscribers := make([]Subscriber, len(c.subscribers))
	copy(subscribers, c.subscribers)
	c.subscriberMux.Unlock()

	c.deliveryMux.Lock()
	defer c.deliveryMux.Unlock()
	for _, subscriber := range subscribers {
		c.deliver(subscriber, event)
	}
	c.signalWaiters(event)
}

func (c *Coordinator) deliver(subscriber Subscriber, event *CompletionEvent) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Warn("completion subscriber panicked", "error", recovered)
		}
	}()
	subscriber.OnCompletion(event)
}
