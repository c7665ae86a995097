package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

const snapshotKeyPrefix = "snapshot:"

// Snapshot is a stored event with its payload kept as raw JSON.
type Snapshot struct {
	Name        string          `json:"event"`
	Seq         uint64          `json:"seq"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"publishedAt"`
}

// SnapshotRepository keeps the latest event of every name, so a late client can render from it.
type SnapshotRepository interface {
	Save(ctx context.Context, event publisher.Event) error
	GetByName(ctx context.Context, name string) (*Snapshot, error)
	GetAll(ctx context.Context) ([]Snapshot, error)
	DeleteAll(ctx context.Context) error
}

type dbSnapshot struct {
	client *redis.Client
}

func NewSnapshotRepository(client *redis.Client) SnapshotRepository {
	return &dbSnapshot{
		client: client,
	}
}

func (that *dbSnapshot) Save(ctx context.Context, event publisher.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", event.Name, err)
	}

	if err = that.client.Set(ctx, snapshotKeyPrefix+event.Name, eventJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s snapshot: %w", event.Name, err)
	}

	return nil
}

func (that *dbSnapshot) GetByName(ctx context.Context, name string) (*Snapshot, error) {
	response, err := that.client.Get(ctx, snapshotKeyPrefix+name).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get %s snapshot: %w", name, err)
	}

	var snapshot Snapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s snapshot: %w", name, err)
	}

	return &snapshot, nil
}

// GetAll returns every stored snapshot in publish order.
func (that *dbSnapshot) GetAll(ctx context.Context) ([]Snapshot, error) {
	keys, err := that.keys(ctx)
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []Snapshot{}, nil
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var snapshot Snapshot
		if err = json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Seq < snapshots[j].Seq
	})

	return snapshots, nil
}

func (that *dbSnapshot) DeleteAll(ctx context.Context) error {
	keys, err := that.keys(ctx)
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	if err = that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return nil
}

func (that *dbSnapshot) keys(ctx context.Context) ([]string, error) {
	var keys []string

	iter := that.client.Scan(ctx, 0, snapshotKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshot keys: %w", err)
	}

	return keys, nil
}
