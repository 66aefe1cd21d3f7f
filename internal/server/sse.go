package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamWriter frames JSON payloads as Server-Sent Events. The response
// uses text/plain rather than text/event-stream because the browser side
// consumes it with a plain reader, not EventSource.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStreamWriter sets the streaming headers and returns a writer.
func NewStreamWriter(w http.ResponseWriter) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &StreamWriter{w: w, flusher: flusher}, nil
}

// Send writes one data: framed JSON payload and flushes.
func (s *StreamWriter) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close writes the stream terminator sentinel.
func (s *StreamWriter) Close() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// streamNotifier adapts a StreamWriter to the orchestrator's outbound
// notification contract.
type streamNotifier struct {
	w *StreamWriter
}

func (n *streamNotifier) Processing(message string) error {
	return n.w.Send(map[string]string{"status": "processing", "message": message})
}

func (n *streamNotifier) Completed(result string) error {
	if err := n.w.Send(map[string]string{"status": "completed", "result": result}); err != nil {
		return err
	}
	return n.w.Close()
}

// Failed sends the error payload. No terminator follows it; the client
// treats the error payload itself as terminal.
func (n *streamNotifier) Failed(message string) error {
	return n.w.Send(map[string]string{"status": "error", "message": message})
}
