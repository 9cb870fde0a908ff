package fsm

import (
	"testing"

	"github.com/spinforge/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinCycle(t *testing.T) {
	m := New("testgame")

	next, err := m.ClientAct(domain.KindBet)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSpin, next)

	next, err = m.ClientAct(domain.KindSpin)
	require.NoError(t, err)
	assert.Equal(t, domain.KindClose, next)

	next, err = m.ServerAct(domain.KindCollectStart)
	require.NoError(t, err)
	assert.Equal(t, domain.KindCollect, next)

	next, err = m.ClientAct(domain.KindCollect)
	require.NoError(t, err)
	assert.Equal(t, domain.KindBet, next)
}

func TestFeatureTransitions(t *testing.T) {
	t.Run("respin", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindClose)
		next, err := m.ServerAct(domain.KindRespinStart)
		require.NoError(t, err)
		assert.Equal(t, domain.KindRespin, next)
		next, err = m.ClientAct(domain.KindRespin)
		require.NoError(t, err)
		assert.Equal(t, domain.KindClose, next)
	})

	t.Run("free spins from bet", func(t *testing.T) {
		m := New("g")
		next, err := m.ServerAct(domain.KindFreeSpinStart)
		require.NoError(t, err)
		assert.Equal(t, domain.KindFreeSpin, next)
		next, err = m.ClientAct(domain.KindFreeSpin)
		require.NoError(t, err)
		assert.Equal(t, domain.KindClose, next)
	})

	t.Run("free collect returns to free spin", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindClose)
		_, err := m.ServerAct(domain.KindFreeCollectStart)
		require.NoError(t, err)
		next, err := m.ClientAct(domain.KindFreeCollect)
		require.NoError(t, err)
		assert.Equal(t, domain.KindFreeSpin, next)
	})

	t.Run("gamble end collects to bet", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindClose)
		_, err := m.ServerAct(domain.KindGambleEnd)
		require.NoError(t, err)
		next, err := m.ClientAct(domain.KindCollect)
		require.NoError(t, err)
		assert.Equal(t, domain.KindBet, next)
	})

	t.Run("gamble play from collect", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindCollect)
		next, err := m.ClientAct(domain.KindGamblePlay)
		require.NoError(t, err)
		assert.Equal(t, domain.KindClose, next)
	})

	t.Run("half collect stays in collect", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindCollect)
		next, err := m.ClientAct(domain.KindHalfCollect)
		require.NoError(t, err)
		assert.Equal(t, domain.KindCollect, next)
	})

	t.Run("bet line keeps bet state", func(t *testing.T) {
		m := New("g")
		next, err := m.ClientAct(domain.KindBetLine)
		require.NoError(t, err)
		assert.Equal(t, domain.KindBet, next)
	})
}

func TestIllegalTransitions(t *testing.T) {
	t.Run("collect from bet", func(t *testing.T) {
		m := New("g")
		_, err := m.ClientAct(domain.KindCollect)
		require.Error(t, err)
		assert.Equal(t, domain.KindBet, m.Current())
	})

	t.Run("server event rejected as client act", func(t *testing.T) {
		m := New("g")
		m.Init(domain.KindClose)
		_, err := m.ClientAct(domain.KindCollectStart)
		require.Error(t, err)
	})

	t.Run("spin twice", func(t *testing.T) {
		m := New("g")
		_, err := m.ClientAct(domain.KindBet)
		require.NoError(t, err)
		_, err = m.ClientAct(domain.KindSpin)
		require.NoError(t, err)
		_, err = m.ClientAct(domain.KindSpin)
		require.Error(t, err)
	})
}

func TestReset(t *testing.T) {
	m := New("g")
	_, err := m.ClientAct(domain.KindBet)
	require.NoError(t, err)

	m.Reset(domain.KindSpin)
	assert.Equal(t, domain.KindSpin, m.Current())

	// after reset the pending bet is considered placed
	next, err := m.ClientAct(domain.KindSpin)
	require.NoError(t, err)
	assert.Equal(t, domain.KindClose, next)
}
