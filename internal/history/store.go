// Package history implements the saved-results and ratings store. It is
// an external collaborator of the execution engine: the engine itself
// never touches it, handlers call it after an execution completes. All
// state lives in redis hashes under versioned key namespaces.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dileep-u-k/toolforge/internal/version"
)

// ErrItemNotFound is returned when a saved-item id does not exist for the
// given tool.
var ErrItemNotFound = errors.New("saved item not found")

// SavedItem is one persisted execution result.
type SavedItem struct {
	ID           string    `json:"id"`
	ToolSlug     string    `json:"toolSlug"`
	Input        string    `json:"input"`
	Output       string    `json:"output"`
	OutputFormat string    `json:"outputFormat"`
	Rating       int       `json:"rating,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists saved items and their ratings in redis.
type Store struct {
	rdb *redis.Client
}

// NewStore wires the store to a redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Save persists one item and returns its id. The id is derived from the
// tool slug and the output content, so saving identical output twice
// overwrites one entry instead of duplicating it; the index list only
// grows on first insertion.
func (s *Store) Save(ctx context.Context, item SavedItem) (string, error) {
	id := version.ContentID(item.ToolSlug, item.Output)
	key := version.HistoryKey(item.ToolSlug, id)

	existed, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check saved item: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"input":         item.Input,
		"output":        item.Output,
		"output_format": item.OutputFormat,
		"created_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if existed == 0 {
		pipe.RPush(ctx, version.HistoryIndexKey(item.ToolSlug), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save item: %w", err)
	}
	return id, nil
}

// Rate records a rating for a saved item. Ratings are clamped to 1-5.
func (s *Store) Rate(ctx context.Context, slug, id string, rating int) error {
	if rating < 1 {
		rating = 1
	} else if rating > 5 {
		rating = 5
	}

	key := version.HistoryKey(slug, id)
	existed, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check saved item: %w", err)
	}
	if existed == 0 {
		return fmt.Errorf("%w: %s/%s", ErrItemNotFound, slug, id)
	}
	if err := s.rdb.HSet(ctx, key, "rating", rating).Err(); err != nil {
		return fmt.Errorf("failed to store rating: %w", err)
	}
	return nil
}

// List returns every saved item for a tool in insertion order.
func (s *Store) List(ctx context.Context, slug string) ([]SavedItem, error) {
	ids, err := s.rdb.LRange(ctx, version.HistoryIndexKey(slug), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read saved index: %w", err)
	}

	items := make([]SavedItem, 0, len(ids))
	for _, id := range ids {
		fields, err := s.rdb.HGetAll(ctx, version.HistoryKey(slug, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read saved item %s: %w", id, err)
		}
		if len(fields) == 0 {
			// Index entry without a hash: the item expired or was
			// deleted out of band. Skip rather than fail the listing.
			continue
		}
		items = append(items, itemFromFields(slug, id, fields))
	}
	return items, nil
}

// itemFromFields rebuilds a SavedItem from its redis hash fields.
func itemFromFields(slug, id string, fields map[string]string) SavedItem {
	item := SavedItem{
		ID:           id,
		ToolSlug:     slug,
		Input:        fields["input"],
		Output:       fields["output"],
		OutputFormat: fields["output_format"],
	}
	item.Rating, _ = strconv.Atoi(fields["rating"])
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	return item
}
