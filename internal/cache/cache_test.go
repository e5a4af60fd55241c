package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

func TestRegattaKeyNormalizesSailNumber(t *testing.T) {
	assert.Equal(t, RegattaKey("abc", "ger 12345"), RegattaKey("abc", "GER12345"))
	assert.Equal(t, "regatta:abc:GER12345", RegattaKey("abc", "GER 12345"))
	assert.NotEqual(t, RegattaKey("abc", "GER 1"), InvoiceKey("abc"))
	assert.Equal(t, RegattaKey("abc", "GER 1"), RegattaKey("abc", "GER 1", "", ""))
	assert.NotEqual(t, RegattaKey("abc", "GER 1"), RegattaKey("abc", "GER 1", "Anna", ""))
	assert.NotEqual(t, RegattaKey("abc", "GER 1", "Anna", ""), RegattaKey("abc", "GER 1", "", "Anna"))
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	got[0] = 'x'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Hour))
	now = now.Add(59 * time.Minute)
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, m.Len())
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, common.CacheConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)

	c, err = New(ctx, common.CacheConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(ctx, common.CacheConfig{Driver: "memcached"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
