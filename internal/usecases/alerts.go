package usecases

import (
	"buzzchat/internal/interfaces"

	"go.uber.org/zap"
)

// AlertService forwards seller alerts (giveaway entries, sold-out items) to
// an external messenger. A nil service or an empty chat id drops alerts.
type AlertService struct {
	messenger interfaces.Messenger
	chatID    string
	logger    *zap.Logger
}

func NewAlertService(messenger interfaces.Messenger, chatID string, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{messenger: messenger, chatID: chatID, logger: logger}
}

// Enabled reports whether alerts have somewhere to go
func (a *AlertService) Enabled() bool {
	return a != nil && a.messenger != nil && a.chatID != ""
}

// Send delivers text. Failures are logged, never returned: an alert is a
// courtesy and must not fail the operation that raised it.
func (a *AlertService) Send(text string) {
	if !a.Enabled() {
		return
	}
	if err := a.messenger.SendMessage(a.chatID, text); err != nil {
		a.logger.Warn("seller alert not delivered", zap.Error(err))
	}
}

// BotName returns the sending bot's handle when the messenger exposes one
func (a *AlertService) BotName() string {
	if !a.Enabled() {
		return ""
	}
	if named, ok := a.messenger.(interface{ Username() string }); ok {
		return named.Username()
	}
	return ""
}

// SendTest delivers text and reports the failure, for the settings page's
// "send test alert" button.
func (a *AlertService) SendTest(text string) error {
	if !a.Enabled() {
		return ErrAlertsDisabled
	}
	return a.messenger.SendMessage(a.chatID, text)
}
