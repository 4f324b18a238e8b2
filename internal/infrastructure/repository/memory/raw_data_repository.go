package memory

import (
	"context"
	"sync"

	"github.com/draftball/draft-league/internal/domain/rawdata"
)

type RawDataRepository struct {
	mu    sync.Mutex
	items map[string]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{items: make(map[string]rawdata.Payload)}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.items[item.Source+"|"+item.EntityKey] = item
	}
	return nil
}

func (r *RawDataRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
