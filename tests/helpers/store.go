package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// RecordingStore wraps a Store, counts every call by method name and lets a
// test inject failures per method.
type RecordingStore struct {
	repository.Store

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func NewRecordingStore(inner repository.Store) *RecordingStore {
	return &RecordingStore{
		Store: inner,
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// Calls returns how many times method was invoked.
func (s *RecordingStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Total returns the number of calls across all methods.
func (s *RecordingStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Reset clears the call counters.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// FailOn makes every subsequent call to method return err. A nil err clears it.
func (s *RecordingStore) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *RecordingStore) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.fail[method]
}

func (s *RecordingStore) InsertChat(ctx context.Context, userID, title string) (*repository.ChatRow, error) {
	if err := s.record("InsertChat"); err != nil {
		return nil, err
	}
	return s.Store.InsertChat(ctx, userID, title)
}

func (s *RecordingStore) SelectChat(ctx context.Context, chatID string) (*repository.ChatRow, error) {
	if err := s.record("SelectChat"); err != nil {
		return nil, err
	}
	return s.Store.SelectChat(ctx, chatID)
}

func (s *RecordingStore) SelectChatsByUser(ctx context.Context, userID string) ([]repository.ChatRow, error) {
	if err := s.record("SelectChatsByUser"); err != nil {
		return nil, err
	}
	return s.Store.SelectChatsByUser(ctx, userID)
}

func (s *RecordingStore) UpdateChatTitle(ctx context.Context, chatID, title string) (bool, error) {
	if err := s.record("UpdateChatTitle"); err != nil {
		return false, err
	}
	return s.Store.UpdateChatTitle(ctx, chatID, title)
}

func (s *RecordingStore) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	if err := s.record("TouchChat"); err != nil {
		return err
	}
	return s.Store.TouchChat(ctx, chatID, at)
}

func (s *RecordingStore) DeleteChat(ctx context.Context, chatID string) (bool, error) {
	if err := s.record("DeleteChat"); err != nil {
		return false, err
	}
	return s.Store.DeleteChat(ctx, chatID)
}

func (s *RecordingStore) InsertMessage(ctx context.Context, msg *repository.MessageRow) (*repository.MessageRow, error) {
	if err := s.record("InsertMessage"); err != nil {
		return nil, err
	}
	return s.Store.InsertMessage(ctx, msg)
}

func (s *RecordingStore) SelectMessages(ctx context.Context, chatID string) ([]repository.MessageRow, error) {
	if err := s.record("SelectMessages"); err != nil {
		return nil, err
	}
	return s.Store.SelectMessages(ctx, chatID)
}

func (s *RecordingStore) SelectMessagesIn(ctx context.Context, chatIDs []string) ([]repository.MessageRow, error) {
	if err := s.record("SelectMessagesIn"); err != nil {
		return nil, err
	}
	return s.Store.SelectMessagesIn(ctx, chatIDs)
}

func (s *RecordingStore) SelectProfile(ctx context.Context, userID string) (*repository.ProfileRow, error) {
	if err := s.record("SelectProfile"); err != nil {
		return nil, err
	}
	return s.Store.SelectProfile(ctx, userID)
}

func (s *RecordingStore) UpsertProfile(ctx context.Context, p *repository.ProfileRow) (*repository.ProfileRow, error) {
	if err := s.record("UpsertProfile"); err != nil {
		return nil, err
	}
	return s.Store.UpsertProfile(ctx, p)
}
