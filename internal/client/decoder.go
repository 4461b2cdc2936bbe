// Package client consumes the chat HTTP API, turning event streams back into
// discrete turn events.
package client

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Event is one decoded stream event: ChunkEvent, DoneEvent or ErrorEvent.
type Event interface {
	isEvent()
}

type ChunkEvent struct {
	Text string
}

type DoneEvent struct {
	MessageID string
	Content   string
}

type ErrorEvent struct {
	Message string
}

func (ChunkEvent) isEvent() {}
func (DoneEvent) isEvent()  {}
func (ErrorEvent) isEvent() {}

// Decoder reads server-sent events. Comments, unknown fields, unknown event
// names and events whose data is not valid JSON are skipped.
type Decoder struct {
	r     *bufio.Reader
	event string
	data  []string
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next known event, or io.EOF once the stream ends. A
// trailing event without its blank-line terminator is discarded.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			// a partial line at EOF never completes an event
			d.reset()
			return nil, err
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if line == "" {
			if ev, ok := d.dispatch(); ok {
				return ev, nil
			}
			continue
		}
		d.field(line)
	}
}

func (d *Decoder) field(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	name, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}
	switch name {
	case "event":
		d.event = value
	case "data":
		d.data = append(d.data, value)
	}
}

func (d *Decoder) dispatch() (Event, bool) {
	name, data := d.event, strings.Join(d.data, "\n")
	hasData := len(d.data) > 0
	d.reset()
	if !hasData {
		return nil, false
	}

	switch name {
	case "chunk":
		var p struct {
			Content string `json:"content"`
		}
		if json.Unmarshal([]byte(data), &p) != nil {
			return nil, false
		}
		return ChunkEvent{Text: p.Content}, true
	case "done":
		var p struct {
			MessageID string `json:"messageId"`
			Content   string `json:"content"`
		}
		if json.Unmarshal([]byte(data), &p) != nil {
			return nil, false
		}
		return DoneEvent{MessageID: p.MessageID, Content: p.Content}, true
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(data), &p) != nil {
			return nil, false
		}
		return ErrorEvent{Message: p.Error}, true
	default:
		return nil, false
	}
}

func (d *Decoder) reset() {
	d.event = ""
	d.data = d.data[:0]
}
