package llm

import (
	"context"
	"sync"
)

// Stub is a deterministic Client for development and tests. When a JSON
// response is requested it returns Response if set, else a minimal valid
// object; otherwise it returns Text.
type Stub struct {
	Text     string
	Response string

	mu sync.Mutex
	// Requests records every request received, in order. Read it only after
	// all Complete calls have returned.
	Requests []Request
}

// NewStub creates a stub client with sensible default replies
func NewStub() *Stub {
	return &Stub{
		Text: "This is a development response. Please consult a healthcare professional for medical concerns.",
	}
}

// Complete records the request and returns the canned reply
func (s *Stub) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	s.mu.Unlock()
	if req.ForceJSON {
		if s.Response != "" {
			return s.Response, nil
		}
		return `{}`, nil
	}
	return s.Text, nil
}
