package notify

import (
	"container/list"
	"sync"
)

// replayQueue keeps the most recent events of each channel so reconnecting
// subscribers can catch up. Each channel gets its own bounded list so one
// channel's burst cannot evict another channel's events.
type replayQueue struct {
	mu      sync.RWMutex
	queues  map[string]*list.List
	maxSize int
}

func newReplayQueue(maxSize int) *replayQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &replayQueue{
		queues:  make(map[string]*list.List),
		maxSize: maxSize,
	}
}

func (q *replayQueue) enqueue(channel string, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.queues[channel]
	if !ok {
		l = list.New()
		q.queues[channel] = l
	}
	l.PushBack(ev)
	for l.Len() > q.maxSize {
		l.Remove(l.Front())
	}
}

// missed returns the events of channel with an id greater than after, oldest first.
func (q *replayQueue) missed(channel string, after int64) []Event {
	q.mu.RLock()
	defer q.mu.RUnlock()

	l, ok := q.queues[channel]
	if !ok {
		return nil
	}
	var out []Event
	for e := l.Front(); e != nil; e = e.Next() {
		if ev := e.Value.(Event); ev.ID > after {
			out = append(out, ev)
		}
	}
	return out
}

func (q *replayQueue) prune(channel string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, channel)
}
