package usecases

import (
	"context"
	"strings"
	"testing"

	"buzzchat/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcomeDelayIsClamped(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()

	d, err := ws.Welcome.SetDelay(ctx, "600")
	require.NoError(t, err)
	assert.Equal(t, MaxWelcomeDelay, d)

	d, err = ws.Welcome.SetDelay(ctx, "soon")
	require.NoError(t, err)
	assert.Equal(t, DefaultWelcomeDelay, d)
	assert.Equal(t, DefaultWelcomeDelay, ws.Welcome.Get().DelaySeconds)
}

func TestTimers(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()

	view := ws.Timers.List()
	assert.True(t, view.Empty)
	assert.NotEmpty(t, view.CallToAction)

	require.NoError(t, ws.Timers.Add(ctx, nil))
	require.NoError(t, ws.Timers.SetText(nil, 0, "Follow for more drops"))
	interval, err := ws.Timers.SetInterval(ctx, 0, "500")
	require.NoError(t, err)
	assert.Equal(t, MaxTimerInterval, interval)

	view = ws.Timers.List()
	require.Len(t, view.Items, 1)
	assert.False(t, view.Empty)
	assert.Equal(t, "Follow for more drops", view.Items[0].Text)
	assert.True(t, view.Items[0].Enabled)

	assert.ErrorIs(t, ws.Timers.SetText(nil, 3, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, ws.Timers.Delete(ctx, 0, Confirmation{}), ErrNotConfirmed)
	require.NoError(t, ws.Timers.Delete(ctx, 0, confirmed))
	assert.True(t, ws.Timers.List().Empty)
}

func TestTimerLimitIsTheSameOnEveryPlan(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierPro)

	for i := 0; i < 10; i++ {
		require.NoError(t, ws.Timers.Add(ctx, nil))
	}
	sink := &NoticeCollector{}
	assert.ErrorIs(t, ws.Timers.Add(ctx, sink), ErrLimitReached)
	require.Len(t, sink.Notices(), 1)
	assert.Equal(t, "Maximum of 10 timers reached", sink.Notices()[0].Text)
}

func TestFAQEditing(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()

	require.NoError(t, ws.FAQ.AddRule(ctx, nil))
	triggers, err := ws.FAQ.SetTriggers(nil, 0, "shipping, Shipping, delivery,")
	require.NoError(t, err)
	assert.Equal(t, []string{"shipping", "delivery"}, triggers)

	sink := &NoticeCollector{}
	require.NoError(t, ws.FAQ.SetReply(sink, 0, strings.Repeat("x", 600)))
	assert.Len(t, ws.FAQ.List().Items[0].Reply, MaxReplyLength)
	assert.Len(t, sink.Notices(), 1)

	require.NoError(t, ws.FAQ.SetCaseSensitive(ctx, 0, true))
	assert.True(t, ws.FAQ.List().Items[0].CaseSensitive)
}

func TestMatchFAQ(t *testing.T) {
	rules := []entities.FaqRule{
		{Triggers: []string{"SKU"}, Reply: "exact", CaseSensitive: true},
		{Triggers: []string{"ship", "delivery"}, Reply: "2-3 days"},
	}
	assert.Equal(t, "2-3 days", MatchFAQ(rules, "When do you SHIP?"))
	assert.Equal(t, "exact", MatchFAQ(rules, "what SKU is that"))
	assert.Equal(t, "", MatchFAQ(rules, "what sku is that"))
	assert.Equal(t, "", MatchFAQ(nil, "ship"))
}

func TestFAQPreviewIgnoresSwitch(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()
	require.NoError(t, ws.Store.MutateNow(ctx, func(s *entities.Settings) error {
		s.FAQ.Enabled = false
		s.FAQ.Rules = []entities.FaqRule{{Triggers: []string{"price"}, Reply: "see pinned"}}
		return nil
	}))

	assert.Equal(t, FAQPreview{Reply: "see pinned", Matched: true}, ws.FAQ.Preview("what's the PRICE"))
	assert.Equal(t, FAQPreview{}, ws.FAQ.Preview("hi"))
}

func TestCommandEditing(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()

	require.NoError(t, ws.Commands.Add(ctx, nil))
	trigger, err := ws.Commands.SetTrigger(0, "!Shipping!")
	require.NoError(t, err)
	assert.Equal(t, "shipping", trigger)

	cooldown, err := ws.Commands.SetCooldown(ctx, 0, "-1")
	require.NoError(t, err)
	assert.Equal(t, 0, cooldown)

	require.NoError(t, ws.Commands.SetResponse(nil, 0, "Ships in 2 days"))
	cmd := ws.Commands.List().Items[0]
	assert.Equal(t, entities.Command{Trigger: "shipping", Response: "Ships in 2 days"}, cmd)

	for i := 1; i < 5; i++ {
		require.NoError(t, ws.Commands.Add(ctx, nil))
	}
	assert.ErrorIs(t, ws.Commands.Add(ctx, nil), ErrLimitReached)
	assert.Equal(t, 5, ws.Commands.List().Limit)
}

func TestQuickRepliesStopAtTen(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()

	sink := &NoticeCollector{}
	require.NoError(t, ws.QuickReplies.Add(ctx, sink, "  "+strings.Repeat("L", 40), "Thanks for the follow!"))
	assert.Len(t, ws.QuickReplies.List().Items[0].Label, MaxQuickReplyLabel)
	assert.Len(t, sink.Notices(), 1)

	for i := 1; i < MaxQuickReplies; i++ {
		require.NoError(t, ws.QuickReplies.Add(ctx, nil, "ok", "ok"))
	}
	sink = &NoticeCollector{}
	assert.ErrorIs(t, ws.QuickReplies.Add(ctx, sink, "one more", "x"), ErrLimitReached)
	assert.Len(t, ws.QuickReplies.List().Items, MaxQuickReplies)
	require.Len(t, sink.Notices(), 1)
	assert.Equal(t, NoticeWarning, sink.Notices()[0].Level)

	require.NoError(t, ws.QuickReplies.Update(nil, 9, "last", "updated"))
	require.NoError(t, ws.QuickReplies.Delete(ctx, 0, confirmed))
	items := ws.QuickReplies.List().Items
	assert.Len(t, items, MaxQuickReplies-1)
	assert.Equal(t, "updated", items[len(items)-1].Text)
}
