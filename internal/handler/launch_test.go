package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spinforge/platform/internal/cache"
	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/infra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostStore struct {
	hosts []domain.LaunchInfo
}

func (s *hostStore) FindGame(context.Context, string) (*domain.Game, error) { return nil, nil }
func (s *hostStore) FindPercent(context.Context, int64) (*domain.Percent, error) {
	return nil, nil
}
func (s *hostStore) FindCurrency(context.Context, string) (*domain.Currency, error) {
	return nil, nil
}
func (s *hostStore) JackpotContributions(context.Context, []int64) (map[string]int64, error) {
	return nil, nil
}
func (s *hostStore) LaunchHosts(context.Context) ([]domain.LaunchInfo, error) {
	return s.hosts, nil
}

func launchURL(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, 200, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["url"]
}

func TestLaunchBuildsURL(t *testing.T) {
	store := &hostStore{hosts: []domain.LaunchInfo{{ID: 1, HostName: "play.example.com"}}}
	cfg := &infra.Config{GamesDir: "/games", GamesDirNoJack: "/games-nj"}
	h := NewLaunchHandler(cache.NewLaunchCache(store, time.Minute, quiet()), cfg, quiet())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("GET", "/launch?game=thunderexpress&lang=en", nil))
	assert.Equal(t, "https://play.example.com/games/thunderexpress/?lang=en", launchURL(t, rec))

	// the jackpot-free build lives under its own directory
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("GET", "/launch?game=thunderexpress&jackpots=false", nil))
	assert.Equal(t, "https://play.example.com/games-nj/thunderexpress/", launchURL(t, rec))
}

func TestLaunchFallsBackToForwardedHost(t *testing.T) {
	store := &hostStore{}
	cfg := &infra.Config{GamesDir: "/games"}
	h := NewLaunchHandler(cache.NewLaunchCache(store, time.Minute, quiet()), cfg, quiet())

	req := httptest.NewRequest("GET", "/launch?game=thunderexpress", nil)
	req.Header.Set("X-Forwarded-Host", "edge.example.com")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	assert.Equal(t, "https://edge.example.com/games/thunderexpress/", launchURL(t, rec))
}

func TestLaunchRequiresGame(t *testing.T) {
	h := NewLaunchHandler(cache.NewLaunchCache(&hostStore{}, time.Minute, quiet()), &infra.Config{}, quiet())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest("GET", "/launch", nil))
	assert.Equal(t, 400, rec.Code)
}
