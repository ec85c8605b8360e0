package client

import (
	"sync"
)

// Event is delivered to session subscribers on every login and logout.
type Event struct {
	LoggedIn bool
	User     *User
}

// Session keeps the token of the signed in user.
// Token is stored only here, so every reader observes the same state.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User

	subs map[int]func(Event)
	next int
}

// NewSession returns empty session.
func NewSession() *Session {
	return &Session{
		subs: map[int]func(Event){},
	}
}

// Token returns current token or empty string.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// User returns signed in user or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

// LoggedIn ...
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Subscribe registers f for session changes and returns function to unregister it.
// f is called synchronously and must not call Subscribe or the returned function.
func (s *Session) Subscribe(f func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs[id] = f

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}

// Set stores token and user and notifies subscribers.
func (s *Session) Set(token string, user *User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, Event{LoggedIn: true, User: user})
}

// Clear forgets token and notifies subscribers if session was active.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.user = nil
	subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, Event{LoggedIn: false})
}

func (s *Session) snapshot() []func(Event) {
	out := make([]func(Event), 0, len(s.subs))
	for _, f := range s.subs {
		out = append(out, f)
	}
	return out
}

func notify(subs []func(Event), e Event) {
	for _, f := range subs {
		f(e)
	}
}
