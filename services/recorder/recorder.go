// Package recorder appends bus traffic to a CBOR event file so a bring-up
// pass can be inspected after the fact.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"pinmux-go/bus"
)

// Event is one recorded bus message. CBOR encoding uses integer keys.
type Event struct {
	Seq       uint64    `cbor:"1,keyasint"`
	Timestamp time.Time `cbor:"2,keyasint"`
	Topic     string    `cbor:"3,keyasint"`
	Retained  bool      `cbor:"4,keyasint,omitempty"`
	Payload   any       `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("recorder: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("recorder: cbor decoder mode: %v", err))
	}
}

// Recorder encodes bus messages as a stream of CBOR Events.
type Recorder struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	seq uint64
	now func() time.Time
	log *slog.Logger
}

func New(w io.Writer, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{enc: encMode.NewEncoder(w), now: time.Now, log: log}
}

// Record appends msg to the stream.
func (r *Recorder) Record(msg *bus.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.enc.Encode(Event{
		Seq:       r.seq,
		Timestamp: r.now(),
		Topic:     msg.Topic.String(),
		Retained:  msg.Retained,
		Payload:   msg.Payload,
	})
}

// Run records every message matching topic until ctx is cancelled. Messages
// already queued at cancellation are still recorded.
func (r *Recorder) Run(ctx context.Context, conn *bus.Connection, topic bus.Topic) {
	sub := conn.Subscribe(topic)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg, ok := <-sub.Channel():
					if !ok {
						return
					}
					r.record(msg)
				default:
					return
				}
			}
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			r.record(msg)
		}
	}
}

func (r *Recorder) record(msg *bus.Message) {
	if err := r.Record(msg); err != nil {
		r.log.Warn("recorder_encode", slog.String("topic", msg.Topic.String()), slog.Any("err", err))
	}
}

// ReadAll decodes every Event in a recorded stream.
func ReadAll(rd io.Reader) ([]Event, error) {
	dec := decMode.NewDecoder(rd)
	var out []Event
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}
