package youtube

import (
	"context"
	"net/http"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/mock"
)

// MockContentExtractor

type MockContentExtractor struct {
	mock.Mock
}

type MockContentExtractor_Expecter struct {
	mock *mock.Mock
}

func (_m *MockContentExtractor) EXPECT() *MockContentExtractor_Expecter {
	return &MockContentExtractor_Expecter{mock: &_m.Mock}
}

func (_m *MockContentExtractor) Extract(ctx context.Context, url string, options ExtractOptions) (*ytdlp.Result, error) {
	ret := _m.Called(ctx, url, options)

	var r0 *ytdlp.Result
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ytdlp.Result)
	}
	return r0, ret.Error(1)
}

type MockContentExtractor_Extract_Call struct {
	*mock.Call
}

func (_e *MockContentExtractor_Expecter) Extract(ctx any, url any, options any) *MockContentExtractor_Extract_Call {
	return &MockContentExtractor_Extract_Call{Call: _e.mock.On("Extract", ctx, url, options)}
}

func (_c *MockContentExtractor_Extract_Call) Return(result *ytdlp.Result, err error) *MockContentExtractor_Extract_Call {
	_c.Call.Return(result, err)
	return _c
}

func NewMockContentExtractor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContentExtractor {
	m := &MockContentExtractor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockHTTPClient

type MockHTTPClient struct {
	mock.Mock
}

type MockHTTPClient_Expecter struct {
	mock *mock.Mock
}

func (_m *MockHTTPClient) EXPECT() *MockHTTPClient_Expecter {
	return &MockHTTPClient_Expecter{mock: &_m.Mock}
}

func (_m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ret := _m.Called(req)

	var r0 *http.Response
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*http.Response)
	}
	return r0, ret.Error(1)
}

type MockHTTPClient_Do_Call struct {
	*mock.Call
}

func (_e *MockHTTPClient_Expecter) Do(req any) *MockHTTPClient_Do_Call {
	return &MockHTTPClient_Do_Call{Call: _e.mock.On("Do", req)}
}

func (_c *MockHTTPClient_Do_Call) Return(resp *http.Response, err error) *MockHTTPClient_Do_Call {
	_c.Call.Return(resp, err)
	return _c
}

func NewMockHTTPClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockHTTPClient {
	m := &MockHTTPClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// stubTranscriptSource

type stubTranscriptSource struct {
	transcript string
	err        error
	calls      int
}

func (s *stubTranscriptSource) Transcript(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.transcript, s.err
}
