package usecases

import (
	"fmt"
	"math"
	"sync"
	"time"

	"buzzchat/internal/entities"
)

// LicenseCache is what the payment provider last told the extension about
// the subscription. Only the trial fields affect the banner.
type LicenseCache struct {
	TrialActive bool  `json:"trialActive"`
	TrialEndsAt int64 `json:"trialEndsAt"` // epoch ms
}

// Banner is the tier badge shown at the top of the popup
type Banner struct {
	Text  string `json:"text"`
	Class string `json:"class"`
	Usage string `json:"usage,omitempty"`
}

// TierBanner projects the tier, list sizes and license cache onto the
// banner. It keeps no state; callers recompute after every change.
func TierBanner(s *entities.Settings, license LicenseCache, now time.Time) Banner {
	var b Banner
	switch {
	case license.TrialActive && license.TrialEndsAt > now.UnixMilli():
		days := int(math.Ceil(float64(license.TrialEndsAt-now.UnixMilli()) / float64(24*time.Hour/time.Millisecond)))
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		b = Banner{Text: fmt.Sprintf("Pro Trial · %d %s left", days, unit), Class: "tier-trial"}
	case s.Tier == entities.TierBusiness:
		b = Banner{Text: "Business Plan", Class: "tier-business"}
	case s.Tier == entities.TierPro:
		b = Banner{Text: "Pro Plan", Class: "tier-pro"}
	default:
		b = Banner{
			Text: fmt.Sprintf("Free Plan · %d/%d FAQ · %d/%d commands",
				len(s.FAQ.Rules), Limit(entities.TierFree, KindFAQ),
				len(s.Commands.List), Limit(entities.TierFree, KindCommand)),
			Class: "tier-free",
		}
	}

	if s.MessagesLimit > 0 {
		limit := s.MessagesLimit + s.ReferralBonus
		b.Usage = fmt.Sprintf("%d/%d messages this month", s.MessagesUsed, limit)
	}
	return b
}

// TierDisplay keeps the latest banner of a store current by subscribing to
// its changes.
type TierDisplay struct {
	mu      sync.RWMutex
	store   *SettingsStore
	license LicenseCache
	banner  Banner
	now     func() time.Time
	cancel  func()
}

func NewTierDisplay(store *SettingsStore) *TierDisplay {
	d := &TierDisplay{store: store, now: time.Now}
	d.cancel = store.Subscribe(d.recompute)
	d.Refresh()
	return d
}

// Refresh recomputes from the store's current document
func (d *TierDisplay) Refresh() {
	d.recompute(d.store.Snapshot())
}

func (d *TierDisplay) recompute(s *entities.Settings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.banner = TierBanner(s, d.license, d.now())
}

// SetLicense replaces the cached license state and recomputes
func (d *TierDisplay) SetLicense(l LicenseCache) {
	d.mu.Lock()
	d.license = l
	d.mu.Unlock()
	d.Refresh()
}

func (d *TierDisplay) Current() Banner {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.banner
}

// Close stops following the store
func (d *TierDisplay) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}
