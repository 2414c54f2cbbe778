package deadletter

import "context"

type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	// List returns entries newest first
	List(ctx context.Context, limit int) ([]*Entry, error)
	Delete(ctx context.Context, id string) error
}
