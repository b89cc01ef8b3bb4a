package service

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/muratoffalex/omnibot/internal/ai"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

var errParseEntities = errors.New("Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 12")

// recordingSender keeps every message it was asked to send. reject decides
// which sends fail.
type recordingSender struct {
	mu      sync.Mutex
	sent    []telegram.TextMessage
	actions []telegram.ChatAction
	nextID  int
	reject  func(msg telegram.TextMessage) error
}

func (s *recordingSender) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := msg.(telegram.TextMessage)
	if s.reject != nil {
		if err := s.reject(text); err != nil {
			return nil, err
		}
	}
	s.nextID++
	s.sent = append(s.sent, text)
	return &telegram.Message{MessageID: 100 + s.nextID, Chat: telegram.Chat{ID: text.ChatID}}, nil
}

func (s *recordingSender) SendChatAction(_ int64, action telegram.ChatAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		result = append(result, m.Text)
	}
	return result
}

// MockProvider

type MockProvider struct {
	mock.Mock
	name string
}

func (_m *MockProvider) Name() string {
	return _m.name
}

func (_m *MockProvider) Ask(ctx context.Context, request ai.Request) (string, error) {
	ret := _m.Called(ctx, request)
	return ret.String(0), ret.Error(1)
}

func (_m *MockProvider) Supports(attachment ai.Attachment) bool {
	return attachment.IsImage()
}

func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}, name string) *MockProvider {
	m := &MockProvider{name: name}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

type textOnlyProvider struct {
	name   string
	answer string
}

func (p textOnlyProvider) Name() string { return p.name }

func (p textOnlyProvider) Ask(context.Context, ai.Request) (string, error) {
	return p.answer, nil
}

func (p textOnlyProvider) Supports(ai.Attachment) bool { return false }

type staticCatalog struct {
	names []string
	def   string
}

func (c staticCatalog) Has(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

func (c staticCatalog) Default() string     { return c.def }
func (c staticCatalog) Providers() []string { return c.names }
