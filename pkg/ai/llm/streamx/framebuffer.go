// Package streamx transforms a raw Messages API SSE byte stream before it
// reaches the SDK parser: tool-call metadata fields are extracted into a
// toolmeta.Store and removed from the streamed tool input, so the downstream
// consumer only ever sees input that validates against the tool's original
// schema. Everything else passes through untouched and in order.
package streamx

import (
	"bytes"
	"strings"
)

// Frame is one complete server-sent-event frame, terminator excluded
type Frame struct {
	// Event is the value of the frame's event: field, "" when absent
	Event string

	// Data is the concatenated data: payload
	Data string

	// Lines holds the original field lines for verbatim passthrough
	Lines []string
}

// appendTo re-serializes the frame, terminator included
func (f Frame) appendTo(buf *bytes.Buffer) {
	for _, line := range f.Lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
}

// FrameBuffer reassembles SSE frames from arbitrarily sized byte chunks.
// A chunk may end mid-line or mid-frame; the event: and data: lines of one
// frame may arrive in different chunks. State carries across Write calls
// until the frame's blank-line terminator shows up.
type FrameBuffer struct {
	partial []byte   // trailing bytes of an unterminated line
	lines   []string // field lines of the frame being assembled
	event   string
	data    []string
}

// NewFrameBuffer creates an empty frame buffer
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Write consumes one chunk and returns every frame it completed
func (fb *FrameBuffer) Write(chunk []byte) []Frame {
	var frames []Frame

	buf := append(fb.partial, chunk...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(buf[:i]), "\r")
		buf = buf[i+1:]

		if line == "" {
			if len(fb.lines) == 0 {
				continue
			}
			frames = append(frames, fb.take())
			continue
		}
		fb.addLine(line)
	}
	fb.partial = append([]byte(nil), buf...)

	return frames
}

// Flush returns the trailing unterminated frame, if any. A truncated stream
// may end mid-frame; the partial line and any assembled fields still count.
func (fb *FrameBuffer) Flush() *Frame {
	if len(fb.partial) > 0 {
		fb.addLine(strings.TrimSuffix(string(fb.partial), "\r"))
		fb.partial = nil
	}
	if len(fb.lines) == 0 {
		return nil
	}
	frame := fb.take()
	return &frame
}

func (fb *FrameBuffer) addLine(line string) {
	fb.lines = append(fb.lines, line)
	if v, ok := strings.CutPrefix(line, "event:"); ok {
		fb.event = strings.TrimPrefix(v, " ")
	} else if v, ok := strings.CutPrefix(line, "data:"); ok {
		fb.data = append(fb.data, strings.TrimPrefix(v, " "))
	}
}

func (fb *FrameBuffer) take() Frame {
	frame := Frame{
		Event: fb.event,
		Data:  strings.Join(fb.data, "\n"),
		Lines: fb.lines,
	}
	fb.lines = nil
	fb.event = ""
	fb.data = nil
	return frame
}
