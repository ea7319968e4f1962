package net

import "sort"

// SessionStore tracks live sessions. Driver goroutine only.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (s *SessionStore) Add(sess *Session)      { s.sessions[sess.ID] = sess }
func (s *SessionStore) Remove(id uint64)       { delete(s.sessions, id) }
func (s *SessionStore) Get(id uint64) *Session { return s.sessions[id] }
func (s *SessionStore) Count() int             { return len(s.sessions) }

// Each visits sessions in id order; fn may remove the visited session.
func (s *SessionStore) Each(fn func(*Session)) {
	ids := make([]uint64, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if sess, ok := s.sessions[id]; ok {
			fn(sess)
		}
	}
}
