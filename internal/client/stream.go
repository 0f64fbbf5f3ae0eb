package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// StreamEvent is one server-sent event from /v1/events/stream.
type StreamEvent struct {
	ID    string
	Topic string
	Data  []byte
}

// ErrStopStream may be returned by a StreamEvents callback to end the stream
// without error.
var ErrStopStream = errors.New("stop stream")

// StreamEvents follows the server's SSE stream, calling fn for each event
// whose topic matches one of topics (all when empty). lastEventID resumes
// after a previously seen event. It returns when ctx is done, the server
// closes the stream, or fn returns an error.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, lastEventID string, fn func(StreamEvent) error) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opening event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiErrorFrom(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	var cur StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "id:"):
			cur.ID = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			cur.Topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			cur.Data = []byte(strings.TrimPrefix(line, "data:"))
		case line == "":
			if cur.Topic != "" {
				if err := fn(cur); err != nil {
					if errors.Is(err, ErrStopStream) {
						return nil
					}
					return err
				}
			}
			cur = StreamEvent{}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}
