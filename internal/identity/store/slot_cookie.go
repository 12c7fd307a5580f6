package store

import (
	"context"
	"net/http"
	"sync"
	"time"

	"assent/pkg/platform/sentinel"
)

// CookieSlot keeps the record on the client. It is seeded from the
// request that opened the flow and buffers writes until Flush emits
// them as a Set-Cookie on whichever response is current, so the same
// slot serves both the opening request and a later submission.
type CookieSlot struct {
	mu     sync.Mutex
	value  string
	found  bool
	dirty  bool
	ttl    time.Duration
	name   string
	domain string
	secure bool
}

// CookieOptions carries the Set-Cookie attributes for flushed writes.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

// NewCookieSlot seeds a slot from the request's cookie jar.
func NewCookieSlot(r *http.Request, opts CookieOptions) *CookieSlot {
	slot := &CookieSlot{
		name:   opts.Name,
		domain: opts.Domain,
		secure: opts.Secure,
	}
	if cookie, err := r.Cookie(opts.Name); err == nil {
		slot.value = cookie.Value
		slot.found = true
	}
	return slot
}

func (s *CookieSlot) Get(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.found {
		return "", sentinel.ErrNotFound
	}
	return s.value, nil
}

func (s *CookieSlot) Set(_ context.Context, _, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.found = true
	s.dirty = true
	s.ttl = ttl
	return nil
}

// Flush writes the buffered record to the response. Call it before the
// body is written; it is a no-op when nothing changed since the last
// flush, so every handler on the flow can call it unconditionally.
func (s *CookieSlot) Flush(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return
	}
	// The record is read client-side by the form script, so the cookie
	// stays visible to JavaScript.
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    s.value,
		Path:     "/",
		Domain:   s.domain,
		Expires:  time.Now().Add(s.ttl),
		MaxAge:   int(s.ttl.Seconds()),
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.dirty = false
}
