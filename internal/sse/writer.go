package sse

import (
	"fmt"
	"net/http"
	"strings"
)

// DoneMarker is the terminal frame of a stream. Clients stop reading when
// they see it, so it is sent exactly once, after the last content frame.
const DoneMarker = "[DONE]"

// Writer frames one response body as a server-sent event stream. It is
// request-scoped: create it inside the handler, send frames, and let it go
// out of scope when the handler returns.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming. It fails when the underlying
// writer cannot flush, since an unflushable stream would sit in a buffer
// until the handler returned and defeat streaming entirely.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// SendData writes one data frame and flushes it. Multi-line payloads are
// split onto one data: line each, which is how the protocol transports
// newlines.
func (sw *Writer) SendData(data string) error {
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(sw.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(sw.w, "\n"); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// SendDone terminates the stream.
func (sw *Writer) SendDone() error {
	return sw.SendData(DoneMarker)
}

// SendComment writes a comment frame. Useful as a keep-alive that clients
// ignore.
func (sw *Writer) SendComment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
