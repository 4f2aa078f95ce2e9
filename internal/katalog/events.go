package katalog

import "sync"

// EventKind distinguishes progress from terminal scan events.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
)

// Event is published to subscribers while a job runs. For a given job,
// progress events carry non-decreasing stats and exactly one finished event
// comes last.
type Event struct {
	Kind   EventKind `json:"kind"`
	JobID  int64     `json:"job_id"`
	Path   string    `json:"path,omitempty"`
	Status JobStatus `json:"status"`
	ScanStats
}

// broker fans events out to subscribers. Each subscriber has an unbounded
// queue so a slow reader never stalls the scan worker.
type broker struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[*subscriber]struct{})}
}

type subscriber struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	done   chan struct{}
	out    chan Event
}

// subscribe registers a subscriber. After close it returns an already
// closed channel.
func (b *broker) subscribe() (<-chan Event, func()) {
	s := &subscriber{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Event),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)
		return s.out, func() {}
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()

	var once sync.Once
	return s.out, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.done)
		})
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.push(ev)
	}
}

func (b *broker) close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[*subscriber]struct{})
	b.mu.Unlock()
	for s := range subs {
		s.finish()
	}
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// finish delivers whatever is queued and then closes the output channel.
func (s *subscriber) finish() {
	s.mu.Lock()
	s.queue = append(s.queue, Event{Kind: ""})
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if ev.Kind == "" {
				return
			}
			select {
			case s.out <- ev:
			case <-s.done:
				return
			}
		}
	}
}
