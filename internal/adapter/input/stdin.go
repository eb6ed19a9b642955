package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/toastd/internal/httpapi"
)

// maxStdinSize bounds how much input is read.
const maxStdinSize = 10 * 1024 * 1024

// StdinAdapter reads toast requests from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads toast requests. Accepted input, tried in order:
//  1. dunstctl history output
//  2. a JSON array of requests
//  3. JSON lines, one request per line
//  4. plain text, one toast per non-empty line
func (a *StdinAdapter) Import(ctx context.Context) ([]httpapi.ToastRequest, error) {
	data, err := io.ReadAll(io.LimitReader(a.reader, maxStdinSize+1))
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read stdin", Err: err}
	}
	if len(data) > maxStdinSize {
		return nil, &AdapterError{Source: "stdin", Message: "input exceeds 10MB"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, nil
	case trimmed[0] == '[':
		return parseJSONArray(trimmed)
	case trimmed[0] == '{':
		if requests, err := ParseDunstHistory(trimmed); err == nil && len(requests) > 0 {
			return requests, nil
		}
		return parseJSONLines(trimmed)
	default:
		return parseTextLines(trimmed)
	}
}

func parseJSONArray(data []byte) ([]httpapi.ToastRequest, error) {
	var requests []httpapi.ToastRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to parse JSON input", Err: err}
	}
	return keepNonEmpty(requests), nil
}

func parseJSONLines(data []byte) ([]httpapi.ToastRequest, error) {
	var requests []httpapi.ToastRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var req httpapi.ToastRequest
		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &AdapterError{Source: "stdin", Message: "failed to parse JSON lines", Err: err}
		}
		requests = append(requests, req)
	}
	return keepNonEmpty(requests), nil
}

func parseTextLines(data []byte) ([]httpapi.ToastRequest, error) {
	var requests []httpapi.ToastRequest
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxStdinSize)
	for scanner.Scan() {
		line := sanitizeString(scanner.Text())
		if line == "" {
			continue
		}
		requests = append(requests, httpapi.ToastRequest{Content: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read lines", Err: err}
	}
	return requests, nil
}

func keepNonEmpty(requests []httpapi.ToastRequest) []httpapi.ToastRequest {
	out := requests[:0]
	for _, req := range requests {
		if req.ContentValue() == nil {
			continue
		}
		if s, ok := req.ContentValue().(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, req)
	}
	return out
}
