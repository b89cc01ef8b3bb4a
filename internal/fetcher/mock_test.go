package fetcher

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/muratoffalex/omnibot/internal/service/youtube"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
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

func NewMockHTTPClient(t testingT) *MockHTTPClient {
	m := &MockHTTPClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockRequest

type MockRequest struct {
	mock.Mock
}

type MockRequest_Expecter struct {
	mock *mock.Mock
}

func (_m *MockRequest) EXPECT() *MockRequest_Expecter {
	return &MockRequest_Expecter{mock: &_m.Mock}
}

func (_m *MockRequest) URL() string {
	return _m.Called().String(0)
}

func (_m *MockRequest) Method() string {
	return _m.Called().String(0)
}

func (_m *MockRequest) Headers() map[string]string {
	ret := _m.Called()
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(map[string]string)
}

func (_m *MockRequest) Options() map[string]any {
	ret := _m.Called()
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(map[string]any)
}

type MockRequest_String_Call struct {
	*mock.Call
}

func (_c *MockRequest_String_Call) Return(s string) *MockRequest_String_Call {
	_c.Call.Return(s)
	return _c
}

type MockRequest_Headers_Call struct {
	*mock.Call
}

func (_c *MockRequest_Headers_Call) Return(h map[string]string) *MockRequest_Headers_Call {
	_c.Call.Return(h)
	return _c
}

type MockRequest_Options_Call struct {
	*mock.Call
}

func (_c *MockRequest_Options_Call) Return(o map[string]any) *MockRequest_Options_Call {
	_c.Call.Return(o)
	return _c
}

func (_e *MockRequest_Expecter) URL() *MockRequest_String_Call {
	return &MockRequest_String_Call{Call: _e.mock.On("URL")}
}

func (_e *MockRequest_Expecter) Method() *MockRequest_String_Call {
	return &MockRequest_String_Call{Call: _e.mock.On("Method")}
}

func (_e *MockRequest_Expecter) Headers() *MockRequest_Headers_Call {
	return &MockRequest_Headers_Call{Call: _e.mock.On("Headers")}
}

func (_e *MockRequest_Expecter) Options() *MockRequest_Options_Call {
	return &MockRequest_Options_Call{Call: _e.mock.On("Options")}
}

func NewMockRequest(t testingT) *MockRequest {
	m := &MockRequest{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockFetcher

type MockFetcher struct {
	mock.Mock
}

type MockFetcher_Expecter struct {
	mock *mock.Mock
}

func (_m *MockFetcher) EXPECT() *MockFetcher_Expecter {
	return &MockFetcher_Expecter{mock: &_m.Mock}
}

func (_m *MockFetcher) Handle(ctx context.Context, request Request) (Response, error) {
	ret := _m.Called(ctx, request)
	return ret.Get(0).(Response), ret.Error(1)
}

func (_m *MockFetcher) CanHandle(url string) bool {
	return _m.Called(url).Bool(0)
}

func (_m *MockFetcher) GetName() string {
	return _m.Called().String(0)
}

type MockFetcher_Handle_Call struct {
	*mock.Call
}

func (_c *MockFetcher_Handle_Call) Return(resp Response, err error) *MockFetcher_Handle_Call {
	_c.Call.Return(resp, err)
	return _c
}

type MockFetcher_CanHandle_Call struct {
	*mock.Call
}

func (_c *MockFetcher_CanHandle_Call) Return(ok bool) *MockFetcher_CanHandle_Call {
	_c.Call.Return(ok)
	return _c
}

type MockFetcher_GetName_Call struct {
	*mock.Call
}

func (_c *MockFetcher_GetName_Call) Return(name string) *MockFetcher_GetName_Call {
	_c.Call.Return(name)
	return _c
}

func (_e *MockFetcher_Expecter) Handle(ctx any, request any) *MockFetcher_Handle_Call {
	return &MockFetcher_Handle_Call{Call: _e.mock.On("Handle", ctx, request)}
}

func (_e *MockFetcher_Expecter) CanHandle(url any) *MockFetcher_CanHandle_Call {
	return &MockFetcher_CanHandle_Call{Call: _e.mock.On("CanHandle", url)}
}

func (_e *MockFetcher_Expecter) GetName() *MockFetcher_GetName_Call {
	return &MockFetcher_GetName_Call{Call: _e.mock.On("GetName")}
}

func NewMockFetcher(t testingT) *MockFetcher {
	m := &MockFetcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// stubYoutubeService

type stubYoutubeService struct {
	data        *youtube.YoutubeData
	err         error
	url         string
	flags       youtube.FetchFlag
	maxComments int
}

func (s *stubYoutubeService) FetchYoutubeData(_ context.Context, url string, flags youtube.FetchFlag, maxComments int) (*youtube.YoutubeData, error) {
	s.url, s.flags, s.maxComments = url, flags, maxComments
	return s.data, s.err
}
