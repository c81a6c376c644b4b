package deck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerrooms/internal/randutil"
)

func TestNewDeckHasEveryCardOnce(t *testing.T) {
	t.Parallel()
	d := NewDeck()
	require.Equal(t, Size, d.Remaining())

	seen := make(map[Card]bool)
	for _, c := range d.Cards() {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, Size)
}

func TestNewDeckIsDeterministic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NewDeck().Cards(), NewDeck().Cards())
}

func TestShuffleIsPermutation(t *testing.T) {
	t.Parallel()
	original := NewDeck().Cards()
	want := make(map[Card]int)
	for _, c := range original {
		want[c]++
	}

	for seed := int64(0); seed < 50; seed++ {
		d := NewShuffledDeck(randutil.New(seed))
		got := make(map[Card]int)
		for _, c := range d.Cards() {
			got[c]++
		}
		assert.Equal(t, want, got, "seed %d", seed)
	}
}

func TestShuffleSameSeedSameOrder(t *testing.T) {
	t.Parallel()
	a := NewShuffledDeck(randutil.New(7)).Cards()
	b := NewShuffledDeck(randutil.New(7)).Cards()
	c := NewShuffledDeck(randutil.New(8)).Cards()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDealOneUntilExhausted(t *testing.T) {
	t.Parallel()
	d := NewDeck()
	top := d.Cards()[Size-1]

	first, err := d.DealOne()
	require.NoError(t, err)
	assert.Equal(t, top, first)

	for d.Remaining() > 0 {
		_, err := d.DealOne()
		require.NoError(t, err)
	}

	_, err = d.DealOne()
	assert.True(t, errors.Is(err, ErrDeckExhausted))
	assert.ErrorIs(t, d.Burn(), ErrDeckExhausted)
}

func TestDealLeavesDeckUntouchedWhenShort(t *testing.T) {
	t.Parallel()
	d := FromCards(MustParseCards("2c3c"))
	_, err := d.Deal(3)
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Equal(t, 2, d.Remaining())
}

func TestStackedDealsInOrder(t *testing.T) {
	t.Parallel()
	order := MustParseCards("AsKdQh")
	d := Stacked(order)
	got, err := d.Deal(3)
	require.NoError(t, err)
	assert.Equal(t, order, got)
}
