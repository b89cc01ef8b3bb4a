package cancel

import (
	"context"
	"fmt"
	"sync"
)

// Manager tracks in-flight requests so a chat can abort them, e.g. when its
// history is cleared.
type Manager struct {
	requests map[string]*activeRequest
	mu       sync.RWMutex
}

type activeRequest struct {
	cancel    context.CancelFunc
	chatID    int64
	messageID int
	command   string
}

type ActiveRequestInfo struct {
	ChatID    int64
	MessageID int
	Command   string
}

func NewManager() *Manager {
	return &Manager{
		requests: make(map[string]*activeRequest),
	}
}

func (m *Manager) makeKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// Register derives a cancelable context from parent for the request. The
// returned func must be called when the request finishes.
func (m *Manager) Register(parent context.Context, chatID int64, messageID int, command string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	req := &activeRequest{
		cancel:    cancel,
		chatID:    chatID,
		messageID: messageID,
		command:   command,
	}

	key := m.makeKey(chatID, messageID)
	m.mu.Lock()
	m.requests[key] = req
	m.mu.Unlock()

	return ctx, func() {
		cancel()
		m.mu.Lock()
		if m.requests[key] == req {
			delete(m.requests, key)
		}
		m.mu.Unlock()
	}
}

func (m *Manager) Cancel(chatID int64, messageID int) bool {
	m.mu.RLock()
	req, exists := m.requests[m.makeKey(chatID, messageID)]
	m.mu.RUnlock()

	if !exists {
		return false
	}

	req.cancel()
	return true
}

// CancelChat aborts every request of the chat and returns how many were
// running.
func (m *Manager) CancelChat(chatID int64) int {
	m.mu.RLock()
	var cancels []context.CancelFunc
	for _, req := range m.requests {
		if req.chatID == chatID {
			cancels = append(cancels, req.cancel)
		}
	}
	m.mu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

func (m *Manager) IsActive(chatID int64, messageID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.requests[m.makeKey(chatID, messageID)]
	return exists
}

func (m *Manager) GetActiveRequest(chatID int64, messageID int) *ActiveRequestInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, exists := m.requests[m.makeKey(chatID, messageID)]
	if !exists {
		return nil
	}

	return &ActiveRequestInfo{
		ChatID:    req.chatID,
		MessageID: req.messageID,
		Command:   req.command,
	}
}
