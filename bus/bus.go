// Package bus is a small in-process pub/sub bus with retained messages and
// MQTT-style wildcards ("+" one level, "#" the remaining levels).
package bus

import (
	"strconv"
	"sync"
)

const (
	wildOne  = "+"
	wildRest = "#"
)

// Topic is a sequence of comparable tokens (typically strings or ints).
type Topic []any

// T builds a topic from tokens.
func T(tokens ...any) Topic { return Topic(tokens) }

// Append returns a new topic with tokens added; t is not modified.
func (t Topic) Append(tokens ...any) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

func (t Topic) Len() int       { return len(t) }
func (t Topic) At(i int) any   { return t[i] }
func (t Topic) String() string { return topicString(t) }

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: a full queue drops its oldest message.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	c := n.children[tok]
	if c == nil && create {
		if n.children == nil {
			n.children = map[any]*node{}
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

type Bus struct {
	mu   sync.Mutex
	root node
	qLen int
}

// NewBus creates a bus whose subscriptions buffer queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{qLen: queueLen}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers msg to matching subscribers. A retained message with a
// nil payload clears the retained slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := &b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
	b.match(&b.root, msg.Topic, func(s *Subscription) { s.deliver(msg) })
}

// match walks subscription patterns that cover topic.
func (b *Bus) match(n *node, topic Topic, fn func(*Subscription)) {
	if h := n.children[wildRest]; h != nil {
		for _, s := range h.subs {
			fn(s)
		}
	}
	if len(topic) == 0 {
		for _, s := range n.subs {
			fn(s)
		}
		return
	}
	if c := n.children[topic[0]]; c != nil {
		b.match(c, topic[1:], fn)
	}
	if c := n.children[wildOne]; c != nil && topic[0] != wildOne {
		b.match(c, topic[1:], fn)
	}
}

// retainedFor collects retained messages whose topic matches pattern.
func (b *Bus) retainedFor(n *node, pattern Topic, out []*Message) []*Message {
	if len(pattern) == 0 {
		if n.retained != nil {
			out = append(out, n.retained)
		}
		return out
	}
	switch pattern[0] {
	case wildRest:
		return collectAll(n, out)
	case wildOne:
		for _, c := range n.children {
			out = b.retainedFor(c, pattern[1:], out)
		}
		return out
	}
	if c := n.children[pattern[0]]; c != nil {
		return b.retainedFor(c, pattern[1:], out)
	}
	return out
}

func collectAll(n *node, out []*Message) []*Message {
	if n.retained != nil {
		out = append(out, n.retained)
	}
	for _, c := range n.children {
		out = collectAll(c, out)
	}
	return out
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	for _, m := range b.retainedFor(&b.root, sub.topic, nil) {
		sub.deliver(m)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &b.root
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection owns the subscriptions of one service.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.subscribe(sub)
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect drops every subscription of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

func topicString(t Topic) string {
	var buf []byte
	for i, tok := range t {
		if i > 0 {
			buf = append(buf, '/')
		}
		switch v := tok.(type) {
		case string:
			buf = append(buf, v...)
		case int:
			buf = strconv.AppendInt(buf, int64(v), 10)
		default:
			buf = append(buf, '?')
		}
	}
	return string(buf)
}
