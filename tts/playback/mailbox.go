package playback

import "sync"

// mailbox is an unbounded FIFO queue with a wake-up signal. Producers never
// block, so synthesizer callbacks and timers can post from any goroutine,
// including from inside a call the consumer is making.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{signal: make(chan struct{}, 1)}
}

// put appends item. It reports false if the mailbox is closed.
func (m *mailbox[T]) put(item T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, item)
	m.mu.Unlock()

	m.wake()
	return true
}

// take removes and returns everything queued, and whether the mailbox has
// been closed.
func (m *mailbox[T]) take() ([]T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items
	m.items = nil
	return items, m.closed
}

// close rejects further puts. Items already queued are still delivered.
func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wake()
}

// ready is signalled whenever items are queued or the mailbox is closed.
func (m *mailbox[T]) ready() <-chan struct{} {
	return m.signal
}

func (m *mailbox[T]) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// drain runs consume for every item until the mailbox is closed and empty.
func (m *mailbox[T]) drain(consume func(T)) {
	for range m.signal {
		items, closed := m.take()
		for _, item := range items {
			consume(item)
		}
		if closed {
			return
		}
	}
}
