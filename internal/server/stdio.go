// Package server exposes a Session over JSON lines on stdio and over HTTP.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/aweris/pkgdiff"
)

// MaxRequestBytes limits the size of a single stdio request line.
const MaxRequestBytes = 1 << 20

// ServeStdio reads one JSON request per line from r and writes one JSON
// response per line to w. Requests run concurrently on the session's
// worker pool, so responses may be written out of order; clients match
// them by id. It returns after r reaches EOF and every response is
// written.
func ServeStdio(ctx context.Context, s *pkgdiff.Session, r io.Reader, w io.Writer, workers int) error {
	enc := &lineEncoder{enc: json.NewEncoder(w)}

	requests := make(chan pkgdiff.Request)
	responses := s.Serve(ctx, requests, workers)

	written := make(chan struct{})
	go func() {
		defer close(written)
		for resp := range responses {
			enc.Encode(resp)
		}
	}()

	readErr := readRequests(ctx, bufio.NewReader(r), requests, enc)
	close(requests)
	<-written

	if readErr != nil {
		return readErr
	}
	return enc.Err()
}

func readRequests(ctx context.Context, reader *bufio.Reader, requests chan<- pkgdiff.Request, enc *lineEncoder) error {
	for {
		line, tooLarge, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if tooLarge {
			enc.Encode(invalid(errors.New("request too large")))
			continue
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req pkgdiff.Request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(invalid(err))
			continue
		}

		select {
		case requests <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func invalid(err error) pkgdiff.Response {
	return pkgdiff.Response{
		ID:   uuid.NewString(),
		Type: pkgdiff.ResponseError,
		Err:  fmt.Errorf("invalid request: %w", err),
	}
}

// lineEncoder serializes writes from the reader and the response loop
// and remembers the first write error.
type lineEncoder struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func (e *lineEncoder) Encode(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return
	}
	e.err = e.enc.Encode(v)
}

func (e *lineEncoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func readLine(reader *bufio.Reader) ([]byte, bool, error) {
	var buf bytes.Buffer
	for {
		chunk, err := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			if buf.Len()+len(chunk) > MaxRequestBytes {
				if chunk[len(chunk)-1] != '\n' {
					if err := discardUntilNewline(reader); err != nil && !errors.Is(err, io.EOF) {
						return nil, true, err
					}
				}
				return nil, true, nil
			}
			buf.Write(chunk)
			if chunk[len(chunk)-1] == '\n' {
				return bytes.TrimRight(buf.Bytes(), "\r\n"), false, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if buf.Len() == 0 {
					return nil, false, io.EOF
				}
				return bytes.TrimRight(buf.Bytes(), "\r\n"), false, nil
			}
			return nil, false, err
		}
	}
}

func discardUntilNewline(reader *bufio.Reader) error {
	for {
		chunk, err := reader.ReadBytes('\n')
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
