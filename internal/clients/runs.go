package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type runStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	RPush(ctx context.Context, key string, values ...any) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

var ErrNoRuns = errors.New("no collection run recorded")

// RunHistory keeps the most recent run reports per tenant in Redis lists.
// Both the list and the last-run key expire ttl after the latest run.
type RunHistory struct {
	store runStore
	keep  int64
	ttl   time.Duration
}

func NewRunHistory(store runStore, keep int64, ttl time.Duration) *RunHistory {
	if keep <= 0 {
		keep = 50
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RunHistory{store: store, keep: keep, ttl: ttl}
}

func runsKey(tenantID string) string {
	if tenantID == "" {
		return "collection:runs:all"
	}
	return "collection:runs:" + tenantID
}

func lastRunKey(tenantID string) string {
	if tenantID == "" {
		return "collection:last-run:all"
	}
	return "collection:last-run:" + tenantID
}

func (h *RunHistory) RecordRun(ctx context.Context, tenantID string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	key := runsKey(tenantID)
	if err := h.store.RPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("push run report: %w", err)
	}
	if err := h.store.LTrim(ctx, key, -h.keep, -1); err != nil {
		return fmt.Errorf("trim run history: %w", err)
	}
	if err := h.store.Expire(ctx, key, h.ttl); err != nil {
		return fmt.Errorf("expire run history: %w", err)
	}
	if err := h.store.Set(ctx, lastRunKey(tenantID), string(data), h.ttl); err != nil {
		return fmt.Errorf("store last run: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (h *RunHistory) Recent(ctx context.Context, tenantID string, limit int) ([]json.RawMessage, error) {
	if limit <= 0 || int64(limit) > h.keep {
		limit = int(h.keep)
	}

	items, err := h.store.LRange(ctx, runsKey(tenantID), -int64(limit), -1)
	if err != nil {
		return nil, fmt.Errorf("read run history: %w", err)
	}

	out := make([]json.RawMessage, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, json.RawMessage(items[i]))
	}
	return out, nil
}

func (h *RunHistory) Last(ctx context.Context, tenantID string) (json.RawMessage, error) {
	v, err := h.store.Get(ctx, lastRunKey(tenantID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("read last run: %w", err)
	}
	return json.RawMessage(v), nil
}
