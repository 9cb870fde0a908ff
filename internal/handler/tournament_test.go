package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
	"github.com/spinforge/platform/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	batches [][]domain.TournamentAward
	result  *protocol.TournamentResult
	err     error
}

func (f *fakeProcessor) Process(_ context.Context, awards []domain.TournamentAward) (*protocol.TournamentResult, error) {
	f.batches = append(f.batches, awards)
	return f.result, f.err
}

func TestTournamentHandleReturnsResult(t *testing.T) {
	proc := &fakeProcessor{result: &protocol.TournamentResult{
		Winners:     map[int64][]domain.TournamentAward{},
		Gains:       []domain.TournamentGain{{ID: 1, UserID: 42}},
		BalanceUser: map[int64]domain.UserBalance{},
	}}
	h := NewTournamentHandler(proc, quiet())

	body := `[{"id":1,"amount":"10","user":42,"remoteId":101,"eventId":7,"ip":"10.0.0.5","remoteCode":-1}]`
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("POST", "/tournament/handle", strings.NewReader(body)))

	require.Equal(t, 200, rec.Code)
	require.Len(t, proc.batches, 1)
	assert.Equal(t, int64(42), proc.batches[0][0].User)

	var result protocol.TournamentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Gains, 1)
}

func TestTournamentHandleRejectsOversizeBatch(t *testing.T) {
	h := NewTournamentHandler(&fakeProcessor{}, quiet())

	big := bytes.Repeat([]byte("x"), maxAwardBatchBytes+1)
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("POST", "/tournament/handle", bytes.NewReader(big)))

	assert.Equal(t, 400, rec.Code)
}

func TestTournamentHandleRejectsBadJSON(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewTournamentHandler(proc, quiet())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("POST", "/tournament/handle", strings.NewReader("{not json")))

	assert.Equal(t, 400, rec.Code)
	assert.Empty(t, proc.batches)
}

type fakeStats struct {
	online int
	state  session.State
}

func (f *fakeStats) Online() int             { return f.online }
func (f *fakeStats) Snapshot() session.State { return f.state }
func (f *fakeStats) QueueDepth() int         { return 0 }

func TestMetricsEndpoints(t *testing.T) {
	h := NewMetricsHandler(&fakeStats{online: 3, state: session.State{Sessions: 5, Clients: 4}})

	rec := httptest.NewRecorder()
	h.Online(rec, httptest.NewRequest("GET", "/metrics/online", nil))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.State(rec, httptest.NewRequest("GET", "/metrics/state", nil))
	assert.JSONEq(t, `{"sessions":5,"clients":4}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Prometheus().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessions_online 3")
}
