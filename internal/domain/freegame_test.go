package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeGameEncode(t *testing.T) {
	t.Run("no symbol encodes question mark", func(t *testing.T) {
		f := FreeGame{Left: 8, Done: 2, Initial: 10, TotalWin: 350, Category: 1}
		assert.Equal(t, "left=8|done=2|initial=10|symbol=?|totalWin=350|category=1", f.Encode())
	})

	t.Run("with symbol", func(t *testing.T) {
		sym := 5
		f := FreeGame{Left: 3, Done: 7, Initial: 10, Symbol: &sym, TotalWin: 1200, Category: 2}
		assert.Equal(t, "left=3|done=7|initial=10|symbol=5|totalWin=1200|category=2", f.Encode())
	})
}

func TestParseFreeGame(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		sym := 4
		in := FreeGame{Left: 1, Done: 9, Initial: 10, Symbol: &sym, TotalWin: 50, Category: 3}
		out, err := ParseFreeGame(in.Encode())
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("question mark symbol parses to nil", func(t *testing.T) {
		out, err := ParseFreeGame("left=8|done=2|initial=10|symbol=?|totalWin=350|category=1")
		require.NoError(t, err)
		assert.Nil(t, out.Symbol)
		assert.Equal(t, 8, out.Left)
		assert.Equal(t, int64(350), out.TotalWin)
	})

	t.Run("bad segment", func(t *testing.T) {
		_, err := ParseFreeGame("left=8|nonsense")
		require.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ParseFreeGame("left=8|bogus=1")
		require.Error(t, err)
	})
}

func TestIsRollbackRC(t *testing.T) {
	assert.True(t, IsRollbackRC(RCIOError))
	assert.True(t, IsRollbackRC(RCHTTPError))
	assert.True(t, IsRollbackRC(RCFormatError))
	assert.False(t, IsRollbackRC(RCOutOfMoney))
	assert.False(t, IsRollbackRC(RCSuccess))
	assert.False(t, IsRollbackRC(RCOperationNotAllowed))
}

func TestAnnounce(t *testing.T) {
	assert.Equal(t, KindRespinStart, KindRespin.Announce())
	assert.Equal(t, KindFreeSpinStart, KindFreeSpin.Announce())
	assert.Equal(t, KindCollectStart, KindCollect.Announce())
	assert.Equal(t, KindClose, KindClose.Announce())
	assert.Equal(t, KindBet, KindBet.Announce())
}
