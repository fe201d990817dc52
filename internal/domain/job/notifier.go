// Package job holds coordination primitives shared by the job store, the worker and waiting callers.
package job

import "sync"

// QueueTopic is signalled whenever a job is enqueued.
const QueueTopic = "queue"

// Notifier manages subscriptions for job notifications keyed by topic.
// A topic is either QueueTopic or a job id.
type Notifier interface {
	Subscribe(topic string) (func(), <-chan struct{})
	Notify(topic string)
	StopAll()
}

// DefaultNotifier is the default in-process implementation of Notifier.
// Each subscriber channel buffers one signal, so bursts collapse into a single wake-up.
type DefaultNotifier struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier() *DefaultNotifier {
	return &DefaultNotifier{
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe registers interest in topic. The returned func unsubscribes and closes the channel.
func (n *DefaultNotifier) Subscribe(topic string) (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[chan struct{}]struct{})
	}
	n.subs[topic][ch] = struct{}{}

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		subscribers := n.subs[topic]
		if subscribers == nil {
			return
		}

		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			delete(n.subs, topic)
		}
	}

	return unsub, ch
}

// Notify wakes every subscriber of topic without blocking.
func (n *DefaultNotifier) Notify(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// StopAll closes every subscription.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for topic, subscribers := range n.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(n.subs, topic)
	}
}

// subscriberCount is used by tests to assert cleanup.
func (n *DefaultNotifier) subscriberCount(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[topic])
}

// drainAndClose removes any buffered notifications before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
