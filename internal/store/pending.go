package store

import (
	"sync"
	"time"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/google/btree"
)

// pendingLess orders notifications by creation time, then by insertion
// sequence. Min() returns the oldest notification.
func pendingLess(a, b domain.PendingNotification) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// PendingStore is the delayed mailbox of accepted trade results. Entries
// are kept in a B-tree ordered by creation time so a sweep only visits
// notifications that are due.
type PendingStore struct {
	mu   sync.Mutex
	tree *btree.BTreeG[domain.PendingNotification]
	seq  uint64
}

// NewPendingStore creates an empty PendingStore.
func NewPendingStore() *PendingStore {
	const degree = 32
	return &PendingStore{
		tree: btree.NewG[domain.PendingNotification](degree, pendingLess),
	}
}

// Add records a notification for user created at createdAt and returns it.
func (s *PendingStore) Add(user string, pos domain.Position, createdAt time.Time) domain.PendingNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	n := domain.PendingNotification{
		Seq:       s.seq,
		User:      user,
		Position:  pos,
		CreatedAt: createdAt,
	}
	s.tree.ReplaceOrInsert(n)
	return n
}

// Requeue puts back a notification previously returned by TakeDue. It
// keeps its original position in the ordering.
func (s *PendingStore) Requeue(n domain.PendingNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.ReplaceOrInsert(n)
}

// TakeDue removes and returns, oldest first, every notification created
// at or before cutoff.
func (s *PendingStore) TakeDue(cutoff time.Time) []domain.PendingNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.PendingNotification
	for {
		n, ok := s.tree.Min()
		if !ok || n.CreatedAt.After(cutoff) {
			break
		}
		s.tree.DeleteMin()
		due = append(due, n)
	}
	return due
}

// Len returns the number of notifications waiting for delivery.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}
