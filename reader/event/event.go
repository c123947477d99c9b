// Package event is the typed multicast event bus each Reader and Manager
// uses to publish card/error/lifecycle notifications (spec.md §5). The
// API shape — Channel, Event, Register/RegisterChannel/RegisterFunc, On,
// Post — is grounded on ethereum-go-ethereum's eventer package (its test
// file is the only surviving source of that package's API).
package event

import "sync"

// Event carries a topic's payload. Data is `any` so the bus stays
// reusable across the distinct payload types the reader package posts
// (card snapshots, errors, end-of-reading signals).
type Event struct {
	Data any
}

// Channel is a subscriber that receives events by channel.
type Channel chan Event

// Func is a subscriber that receives events via callback, invoked
// synchronously from Post.
type Func func(Event)

// Logger is the minimal logging capability the bus needs; nil is valid
// and silences diagnostic output.
type Logger interface {
	Printf(format string, args ...any)
}

type subscriber struct {
	channel Channel
	fn      Func
}

// Bus is a named-topic multicast event bus. Zero value is not usable;
// construct with New.
type Bus struct {
	mu     sync.Mutex
	logger Logger
	subs   map[string][]subscriber
}

// New creates a Bus. logger may be nil.
func New(logger Logger) *Bus {
	return &Bus{logger: logger, subs: make(map[string][]subscriber)}
}

// RegisterChannel subscribes c to topic.
func (b *Bus) RegisterChannel(topic string, c Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], subscriber{channel: c})
}

// RegisterFunc subscribes fn to topic.
func (b *Bus) RegisterFunc(topic string, fn Func) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], subscriber{fn: fn})
}

// Register creates and subscribes a new buffered channel for topic.
func (b *Bus) Register(topic string) Channel {
	c := make(Channel, 1)
	b.RegisterChannel(topic, c)
	return c
}

// On subscribes receiver to topic. receiver must be a Channel or a Func
// (or a plain func(Event), accepted for caller convenience).
func (b *Bus) On(topic string, receiver any) {
	switch r := receiver.(type) {
	case Channel:
		b.RegisterChannel(topic, r)
	case Func:
		b.RegisterFunc(topic, r)
	case func(Event):
		b.RegisterFunc(topic, Func(r))
	default:
		if b.logger != nil {
			b.logger.Printf("event: On(%q) received unsupported receiver type %T", topic, receiver)
		}
	}
}

// Post delivers data to every subscriber of topic. Channel subscribers
// receive the event non-blockingly: a full channel drops the event
// rather than stalling the poster, logging the drop if a Logger is set.
func (b *Bus) Post(topic string, data any) {
	b.mu.Lock()
	subs := append([]subscriber(nil), b.subs[topic]...)
	b.mu.Unlock()

	ev := Event{Data: data}
	for _, s := range subs {
		if s.fn != nil {
			s.fn(ev)
			continue
		}
		select {
		case s.channel <- ev:
		default:
			if b.logger != nil {
				b.logger.Printf("event: dropped %q event, subscriber channel full", topic)
			}
		}
	}
}
