package usecases

import "sync"

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message. The popup renders it as a toast.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// NoticeSink receives notices produced while handling one operation
type NoticeSink interface {
	Notify(n Notice)
}

// NoticeCollector gathers notices for a single request
type NoticeCollector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *NoticeCollector) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *NoticeCollector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

func warn(sink NoticeSink, text string) {
	if sink != nil {
		sink.Notify(Notice{Level: NoticeWarning, Text: text})
	}
}

func info(sink NoticeSink, text string) {
	if sink != nil {
		sink.Notify(Notice{Level: NoticeInfo, Text: text})
	}
}

func success(sink NoticeSink, text string) {
	if sink != nil {
		sink.Notify(Notice{Level: NoticeSuccess, Text: text})
	}
}
