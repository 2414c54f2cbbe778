package testutil

import (
	"context"

	"github.com/flexprice/debitsync/internal/domain/deadletter"
)

// InMemoryDeadLetterStore implements deadletter.Repository
type InMemoryDeadLetterStore struct {
	*InMemoryStore[*deadletter.Entry]
}

func NewInMemoryDeadLetterStore() *InMemoryDeadLetterStore {
	return &InMemoryDeadLetterStore{
		InMemoryStore: NewInMemoryStore[*deadletter.Entry](),
	}
}

func (s *InMemoryDeadLetterStore) Save(ctx context.Context, entry *deadletter.Entry) error {
	_ = s.InMemoryStore.Delete(ctx, entry.ID)
	return s.Create(ctx, entry.ID, entry)
}

func (s *InMemoryDeadLetterStore) List(ctx context.Context, limit int) ([]*deadletter.Entry, error) {
	entries, err := s.InMemoryStore.List(ctx, nil, func(i, j *deadletter.Entry) bool {
		if i.CreatedAt.Equal(j.CreatedAt) {
			return i.ID > j.ID
		}
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Delete ignores unknown ids, like the bolt store
func (s *InMemoryDeadLetterStore) Delete(ctx context.Context, id string) error {
	_ = s.InMemoryStore.Delete(ctx, id)
	return nil
}
