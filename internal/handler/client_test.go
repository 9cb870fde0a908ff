package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spinforge/platform/internal/cache"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSessions struct {
	requests int
	env      *protocol.Envelope
	alive    map[string]bool
}

func (f *fakeSessions) Request(token, requestID string, raw json.RawMessage) *protocol.Envelope {
	f.requests++
	return f.env
}

func (f *fakeSessions) Ping(token string) bool { return f.alive[token] }

type fakeLogins struct {
	token      string
	env        *protocol.Envelope
	err        error
	replayedID int64
}

func (f *fakeLogins) Login(_ context.Context, req *protocol.LoginRequest, ip, ua string) (string, *protocol.Envelope, error) {
	return f.token, f.env, f.err
}

func (f *fakeLogins) LoginReplay(_ context.Context, roundID int64, req *protocol.LoginRequest, ip, ua string) (string, *protocol.Envelope, error) {
	f.replayedID = roundID
	return f.token, f.env, f.err
}

func loginBody() string {
	return `{"userName":"alice","sessionId":"s1","mode":"Demo","gameName":"thunderexpress"}`
}

func TestHandleLoginSetsAuthToken(t *testing.T) {
	logins := &fakeLogins{
		token: "tok-1",
		env:   &protocol.Envelope{Body: &protocol.JoinResponse{Kind: protocol.RespJoin}, NextID: "n-1", Status: 200},
	}
	h := NewClientHandler(&fakeSessions{}, logins, cache.NewResponseCache(), true, quiet())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("POST", "/game/handle", strings.NewReader(loginBody())))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "tok-1", rec.Header().Get(HeaderAuthToken))
	assert.Equal(t, "n-1", rec.Header().Get(HeaderRequestID))

	var join protocol.JoinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &join))
	assert.Equal(t, protocol.RespJoin, join.Kind)
}

func TestHandleReplaysCachedResponse(t *testing.T) {
	sessions := &fakeSessions{env: &protocol.Envelope{
		Body:   &protocol.GameDataResponse{Kind: protocol.RespGameData, Total: 100},
		NextID: "n-2",
		Cache:  true,
		Status: 200,
	}}
	h := NewClientHandler(sessions, &fakeLogins{}, cache.NewResponseCache(), true, quiet())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/game/handle", strings.NewReader(`{"kind":"BetSpin"}`))
		req.Header.Set(HeaderAuthToken, "tok")
		req.Header.Set(HeaderRequestID, "r-1")
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		return rec
	}

	first := send()
	second := send()

	// the retransmission was answered from cache, byte for byte
	assert.Equal(t, 1, sessions.requests)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, "enable", second.Header().Get(HeaderCacheStatus))
	assert.Equal(t, "n-2", second.Header().Get(HeaderRequestID))
	assert.Empty(t, first.Header().Get(HeaderCacheStatus))
}

func TestHandleErrorsAreNotCached(t *testing.T) {
	sessions := &fakeSessions{env: protocol.NewError(assert.AnError)}
	h := NewClientHandler(sessions, &fakeLogins{}, cache.NewResponseCache(), true, quiet())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/game/handle", strings.NewReader(`{"kind":"BetSpin"}`))
		req.Header.Set(HeaderAuthToken, "tok")
		req.Header.Set(HeaderRequestID, "r-1")
		h.Handle(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, sessions.requests)
}

func TestPing(t *testing.T) {
	sessions := &fakeSessions{alive: map[string]bool{"tok": true}}
	h := NewClientHandler(sessions, &fakeLogins{}, nil, false, quiet())

	req := httptest.NewRequest("POST", "/game/ping", nil)
	req.Header.Set(HeaderAuthToken, "tok")
	rec := httptest.NewRecorder()
	h.Ping(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Ping(rec, httptest.NewRequest("POST", "/game/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReplayHandle(t *testing.T) {
	logins := &fakeLogins{
		token: "tok-r",
		env:   &protocol.Envelope{Body: &protocol.JoinResponse{Kind: protocol.RespJoin}, Status: 200},
	}
	h := NewClientHandler(&fakeSessions{}, logins, nil, false, quiet())

	r := chi.NewRouter()
	r.Post("/replay/{roundID}/handle", h.ReplayHandle)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/replay/5012/handle", strings.NewReader(loginBody())))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, int64(5012), logins.replayedID)
	assert.Equal(t, "tok-r", rec.Header().Get(HeaderAuthToken))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/replay/abc/handle", strings.NewReader(loginBody())))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
