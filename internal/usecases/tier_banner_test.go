package usecases

import (
	"context"
	"testing"
	"time"

	"buzzchat/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierBanner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	free := entities.DefaultSettings()
	free.FAQ.Rules = make([]entities.FaqRule, 2)
	free.MessagesUsed = 12
	free.ReferralBonus = 10
	b := TierBanner(free, LicenseCache{}, now)
	assert.Equal(t, "Free Plan · 2/3 FAQ · 0/5 commands", b.Text)
	assert.Equal(t, "tier-free", b.Class)
	assert.Equal(t, "12/60 messages this month", b.Usage)

	trial := LicenseCache{TrialActive: true, TrialEndsAt: now.Add(36 * time.Hour).UnixMilli()}
	b = TierBanner(free, trial, now)
	assert.Equal(t, "Pro Trial · 2 days left", b.Text)
	assert.Equal(t, "tier-trial", b.Class)

	trial.TrialEndsAt = now.Add(day).UnixMilli()
	assert.Equal(t, "Pro Trial · 1 day left", TierBanner(free, trial, now).Text)

	// an expired trial falls through to the tier
	trial.TrialEndsAt = now.Add(-time.Minute).UnixMilli()
	assert.Equal(t, "tier-free", TierBanner(free, trial, now).Class)

	pro := entities.DefaultSettings()
	pro.Tier = entities.TierPro
	assert.Equal(t, Banner{Text: "Pro Plan", Class: "tier-pro", Usage: "0/50 messages this month"}, TierBanner(pro, LicenseCache{}, now))

	biz := entities.DefaultSettings()
	biz.Tier = entities.TierBusiness
	biz.MessagesLimit = 0
	assert.Equal(t, Banner{Text: "Business Plan", Class: "tier-business"}, TierBanner(biz, LicenseCache{}, now))
}

func TestTierDisplayFollowsStore(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()
	assert.Equal(t, "tier-free", ws.Banner.Current().Class)

	require.NoError(t, ws.FAQ.AddRule(ctx, nil))
	assert.Contains(t, ws.Banner.Current().Text, "1/3 FAQ")

	setTier(t, ws, entities.TierBusiness)
	assert.Equal(t, "Business Plan", ws.Banner.Current().Text)

	ws.Banner.SetLicense(LicenseCache{TrialActive: true, TrialEndsAt: time.Now().Add(72 * time.Hour).UnixMilli()})
	assert.Equal(t, "tier-trial", ws.Banner.Current().Class)

	ws.Banner.Close()
	ws.Banner.SetLicense(LicenseCache{})
	setTier(t, ws, entities.TierPro)
	// closed displays no longer follow changes
	assert.Equal(t, "Business Plan", ws.Banner.Current().Text)
}
