package state

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a PersistentStore that has nothing under a key.
var ErrNotFound = errors.New("not found")

// PersistentStore is a key-value store the timeline is mirrored into, so a
// session can be recovered after the process exits.
type PersistentStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// mirror writes the serialized timeline to the persistent store. Failures
// are logged and otherwise ignored; the story carries on without them.
func (s *State) mirror() {
	if s.persist == nil {
		return
	}
	data, err := s.Serialize()
	if err != nil {
		s.log.Warn("serialize timeline for mirror", "error", err)
		return
	}
	if err := s.persist.Set(s.persistKey, string(data)); err != nil {
		s.log.Warn("mirror timeline", "key", s.persistKey, "error", err)
	}
}

// Recover loads the timeline last mirrored to the persistent store. It
// reports false when there is nothing to recover.
func (s *State) Recover() (bool, error) {
	if s.persist == nil {
		return false, nil
	}
	data, err := s.persist.Get(s.persistKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %q: %w", s.persistKey, err)
	}
	if err := s.Deserialize([]byte(data)); err != nil {
		return false, err
	}
	return true, nil
}
