package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// ErrValidation is returned by Create when content or author is empty.
var ErrValidation = errors.New("content and author are required")

var validate = validator.New()

// createInput is the validated form of a Create call.
type createInput struct {
	Content string `validate:"required"`
	Author  string `validate:"required"`
}

// Store is a thread-safe, append-only, in-memory message log.
// Ids are allocated from a counter starting at 1 under the same lock that
// appends, so append order always matches id order.
type Store struct {
	mu       sync.RWMutex
	messages []wire.Message
	nextID   uint64
	now      func() time.Time // injectable for deterministic tests
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		nextID: 1,
		now:    time.Now,
	}
}

// List returns a copy of all messages in creation order.
func (s *Store) List() []wire.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wire.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Create validates the input, assigns the next id and the current time,
// appends the message and returns it. On validation failure the store is
// left unchanged and the returned error wraps ErrValidation.
func (s *Store) Create(content, author string) (wire.Message, error) {
	if err := validate.Struct(createInput{Content: content, Author: author}); err != nil {
		return wire.Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := wire.Message{
		ID:        strconv.FormatUint(s.nextID, 10),
		Content:   content,
		Author:    author,
		CreatedAt: s.now().UTC(),
	}
	s.nextID++
	s.messages = append(s.messages, m)

	slog.Debug("store: message appended", "id", m.ID, "author", m.Author)
	return m, nil
}
