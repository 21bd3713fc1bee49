package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
)

const maxMetricSnapshots = 100

// Buyer is a chatter the seller has interacted with
type Buyer struct {
	Username        string `json:"username"`
	FirstSeen       int64  `json:"firstSeen"`
	LastSeen        int64  `json:"lastSeen"`
	Purchases       int    `json:"purchases"`
	GiveawayEntries int    `json:"giveawayEntries"`
}

type GiveawayEntry struct {
	Username  string `json:"username"`
	EnteredAt int64  `json:"enteredAt"`
}

type MetricSnapshot struct {
	entities.ChatMetricsPayload
	RecordedAt int64 `json:"recordedAt"`
}

// AudienceRepository stores buyer history, giveaway entries and chat metrics.
type AudienceRepository struct {
	kv  interfaces.KeyValueStore
	ns  string
	now func() time.Time
}

func NewAudienceRepository(kv interfaces.KeyValueStore, ns string) *AudienceRepository {
	return &AudienceRepository{kv: kv, ns: ns, now: time.Now}
}

func (r *AudienceRepository) buyers(ctx context.Context) (map[string]*Buyer, error) {
	buyers := map[string]*Buyer{}
	err := getJSON(ctx, r.kv, r.ns, KeyBuyers, &buyers)
	if errors.Is(err, ErrNotFound) {
		return map[string]*Buyer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load buyers: %w", err)
	}
	return buyers, nil
}

// TouchBuyer records activity for username; fn may update the record
func (r *AudienceRepository) TouchBuyer(ctx context.Context, username string, fn func(*Buyer)) error {
	buyers, err := r.buyers(ctx)
	if err != nil {
		return err
	}
	key := strings.ToLower(username)
	now := r.now().UnixMilli()
	b, ok := buyers[key]
	if !ok {
		b = &Buyer{Username: username, FirstSeen: now}
		buyers[key] = b
	}
	b.LastSeen = now
	if fn != nil {
		fn(b)
	}
	return setJSON(ctx, r.kv, r.ns, KeyBuyers, buyers)
}

// Buyers lists buyers by most recent activity
func (r *AudienceRepository) Buyers(ctx context.Context) ([]Buyer, error) {
	buyers, err := r.buyers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Buyer, 0, len(buyers))
	for _, b := range buyers {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen > out[j].LastSeen })
	return out, nil
}

func (r *AudienceRepository) GiveawayEntries(ctx context.Context) ([]GiveawayEntry, error) {
	entries := []GiveawayEntry{}
	err := getJSON(ctx, r.kv, r.ns, KeyGiveawayEntries, &entries)
	if errors.Is(err, ErrNotFound) {
		return []GiveawayEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load giveaway entries: %w", err)
	}
	return entries, nil
}

// AddGiveawayEntry appends an entry. With uniqueOnly a repeat entrant is
// ignored and false is returned.
func (r *AudienceRepository) AddGiveawayEntry(ctx context.Context, username string, uniqueOnly bool) (bool, error) {
	entries, err := r.GiveawayEntries(ctx)
	if err != nil {
		return false, err
	}
	if uniqueOnly {
		for _, e := range entries {
			if strings.EqualFold(e.Username, username) {
				return false, nil
			}
		}
	}
	entries = append(entries, GiveawayEntry{Username: username, EnteredAt: r.now().UnixMilli()})
	return true, setJSON(ctx, r.kv, r.ns, KeyGiveawayEntries, entries)
}

func (r *AudienceRepository) ResetGiveawayEntries(ctx context.Context) error {
	return r.kv.Remove(ctx, r.ns, KeyGiveawayEntries)
}

// RecordMetrics appends a snapshot, keeping the most recent ones only
func (r *AudienceRepository) RecordMetrics(ctx context.Context, m entities.ChatMetricsPayload) error {
	snaps, err := r.Metrics(ctx)
	if err != nil {
		return err
	}
	snaps = append(snaps, MetricSnapshot{ChatMetricsPayload: m, RecordedAt: r.now().UnixMilli()})
	if len(snaps) > maxMetricSnapshots {
		snaps = snaps[len(snaps)-maxMetricSnapshots:]
	}
	return setJSON(ctx, r.kv, r.ns, KeyChatMetrics, snaps)
}

func (r *AudienceRepository) Metrics(ctx context.Context) ([]MetricSnapshot, error) {
	snaps := []MetricSnapshot{}
	err := getJSON(ctx, r.kv, r.ns, KeyChatMetrics, &snaps)
	if errors.Is(err, ErrNotFound) {
		return []MetricSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat metrics: %w", err)
	}
	return snaps, nil
}
