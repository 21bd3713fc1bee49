package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"buzzchat/internal/interfaces"
)

// DailyUsage is one row of the analytics document
type DailyUsage struct {
	Date            string `json:"date"` // 2006-01-02
	MessagesSent    int    `json:"messagesSent"`
	CommandsUsed    int    `json:"commandsUsed"`
	GiveawayEntries int    `json:"giveawayEntries"`
}

type UsageCounter int

const (
	CounterMessagesSent UsageCounter = iota
	CounterCommandsUsed
	CounterGiveawayEntries
)

// QuotaStatus summarizes messagesUsed against messagesLimit
type QuotaStatus struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"` // -1 = unlimited
	Percent   int `json:"percent"`
}

// UsageRepository keeps per-day counters for the analytics export.
type UsageRepository struct {
	kv  interfaces.KeyValueStore
	ns  string
	now func() time.Time
}

func NewUsageRepository(kv interfaces.KeyValueStore, ns string) *UsageRepository {
	return &UsageRepository{kv: kv, ns: ns, now: time.Now}
}

func (r *UsageRepository) load(ctx context.Context) (map[string]*DailyUsage, error) {
	days := map[string]*DailyUsage{}
	err := getJSON(ctx, r.kv, r.ns, KeyAnalytics, &days)
	if errors.Is(err, ErrNotFound) {
		return map[string]*DailyUsage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load analytics: %w", err)
	}
	return days, nil
}

// Increment bumps a counter for today
func (r *UsageRepository) Increment(ctx context.Context, counter UsageCounter) error {
	days, err := r.load(ctx)
	if err != nil {
		return err
	}
	today := r.now().Format("2006-01-02")
	day, ok := days[today]
	if !ok {
		day = &DailyUsage{Date: today}
		days[today] = day
	}
	switch counter {
	case CounterMessagesSent:
		day.MessagesSent++
	case CounterCommandsUsed:
		day.CommandsUsed++
	case CounterGiveawayEntries:
		day.GiveawayEntries++
	}
	return setJSON(ctx, r.kv, r.ns, KeyAnalytics, days)
}

// GetUsageHistory returns the last n days that have data, oldest first
func (r *UsageRepository) GetUsageHistory(ctx context.Context, days int) ([]DailyUsage, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	start := r.now().AddDate(0, 0, -days).Format("2006-01-02")
	out := []DailyUsage{}
	for date, d := range all {
		if date >= start {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// GetQuotaStatus computes remaining quota; limit 0 means unlimited
func GetQuotaStatus(used, limit int) QuotaStatus {
	status := QuotaStatus{Limit: limit, Used: used}
	if limit <= 0 {
		status.Remaining = -1
		return status
	}
	status.Remaining = limit - used
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	status.Percent = used * 100 / limit
	if status.Percent > 100 {
		status.Percent = 100
	}
	return status
}
