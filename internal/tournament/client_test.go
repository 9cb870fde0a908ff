package tournament

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spinforge/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestExpiringSoon(t *testing.T) {
	assert.True(t, expiringSoon(signedToken(t, time.Now().Add(5*time.Second))))
	assert.False(t, expiringSoon(signedToken(t, time.Now().Add(time.Hour))))
	// opaque tokens are kept until the server rejects them
	assert.False(t, expiringSoon("not-a-jwt"))
}

func TestCommitWinsReauthsOnRejectedToken(t *testing.T) {
	var authCalls, commitCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]string{"token": signedToken(t, time.Now().Add(time.Hour))})
		case commitWinsPath:
			if atomic.AddInt32(&commitCalls, 1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var gains []domain.TournamentGain
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gains))
			require.Len(t, gains, 1)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewClient(srv.URL, "ingestor", "pw", quiet())
	c.Start(ctx)

	c.CommitWins(ctx, []domain.TournamentGain{{ID: 1, UserID: 42, Amount: 100}})

	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&commitCalls))
}

func TestCommitWinsReusesToken(t *testing.T) {
	var authCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]string{"token": signedToken(t, time.Now().Add(time.Hour))})
		case commitWinsPath:
			assert.NotEmpty(t, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewClient(srv.URL, "ingestor", "pw", quiet())
	c.Start(ctx)

	c.CommitWins(ctx, []domain.TournamentGain{{ID: 1}})
	c.CommitWins(ctx, []domain.TournamentGain{{ID: 2}})

	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))
}
