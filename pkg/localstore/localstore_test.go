package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Storage) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("uniSchedule.slots", []byte(`[]`)))
	require.NoError(t, s.Set("uniSchedule.slots@maria", []byte(`[{"id":"s1"}]`)))
	require.NoError(t, s.Set("other", []byte(`1`)))

	v, ok, err := s.Get("uniSchedule.slots@maria")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"s1"}]`, string(v))

	keys, err := s.Keys("uniSchedule.")
	require.NoError(t, err)
	assert.Equal(t, []string{"uniSchedule.slots", "uniSchedule.slots@maria"}, keys)

	require.NoError(t, s.Remove("uniSchedule.slots"))
	_, ok, err = s.Get("uniSchedule.slots")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	exercise(t, s)
	require.NoError(t, s.Close())

	_, _, err := s.Get("other")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	exercise(t, s)
	require.NoError(t, s.Close())

	// 重新打开后数据仍在
	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("other")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
}
