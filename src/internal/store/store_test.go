// FILE: logtrace/src/internal/store/store_test.go
package store

import (
	"fmt"
	"sync"
	"testing"

	"logtrace/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertAssignsMonotonicSequence(t *testing.T) {
	s := New(8, nil)

	seq1 := s.Insert(core.ParsedLine{Raw: "first"})
	seq2 := s.Insert(core.ParsedLine{Raw: "second"})
	seq3 := s.Insert(core.ParsedLine{Raw: "third"})

	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)
	assert.Equal(t, uint64(3), seq3)
	assert.Equal(t, 3, s.Len())
}

func TestStore_GetBySequence(t *testing.T) {
	s := New(8, nil)
	seq := s.Insert(core.ParsedLine{Raw: "target", Level: "error"})

	rec, ok := s.Get(seq)
	require.True(t, ok)
	assert.Equal(t, seq, rec.Seq)
	assert.Equal(t, "target", rec.Line.Raw)

	_, ok = s.Get(seq + 100)
	assert.False(t, ok)
	_, ok = s.Get(0)
	assert.False(t, ok)
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	s := New(3, nil)

	for i := 1; i <= 5; i++ {
		s.Insert(core.ParsedLine{Raw: fmt.Sprintf("line-%d", i)})
	}

	assert.Equal(t, 3, s.Len())

	// Sequences 1 and 2 were evicted
	_, ok := s.Get(1)
	assert.False(t, ok)
	_, ok = s.Get(2)
	assert.False(t, ok)

	// 3 through 5 survive and map to the right lines
	for seq := uint64(3); seq <= 5; seq++ {
		rec, ok := s.Get(seq)
		require.True(t, ok, "seq %d should be buffered", seq)
		assert.Equal(t, fmt.Sprintf("line-%d", seq), rec.Line.Raw)
	}

	stats := s.GetStats()
	assert.Equal(t, uint64(5), stats["total_inserted"])
	assert.Equal(t, uint64(2), stats["total_evicted"])
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s := New(10, nil)
	for i := 1; i <= 4; i++ {
		s.Insert(core.ParsedLine{Raw: fmt.Sprintf("line-%d", i)})
	}

	recs := s.Recent(3, "")
	require.Len(t, recs, 3)
	assert.Equal(t, "line-4", recs[0].Line.Raw)
	assert.Equal(t, "line-3", recs[1].Line.Raw)
	assert.Equal(t, "line-2", recs[2].Line.Raw)
}

func TestStore_RecentLevelFilter(t *testing.T) {
	s := New(10, nil)
	s.Insert(core.ParsedLine{Raw: "a", Level: "info"})
	s.Insert(core.ParsedLine{Raw: "b", Level: "error"})
	s.Insert(core.ParsedLine{Raw: "c", Level: "info"})
	s.Insert(core.ParsedLine{Raw: "d", Level: "error"})

	recs := s.Recent(10, "error")
	require.Len(t, recs, 2)
	assert.Equal(t, "d", recs[0].Line.Raw)
	assert.Equal(t, "b", recs[1].Line.Raw)

	assert.Empty(t, s.Recent(10, "fatal"))
}

func TestStore_RecentEmptyAndZeroLimit(t *testing.T) {
	s := New(4, nil)
	assert.Nil(t, s.Recent(10, ""))

	s.Insert(core.ParsedLine{Raw: "x"})
	assert.Nil(t, s.Recent(0, ""))
}

func TestStore_ConcurrentInserts(t *testing.T) {
	s := New(100, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Insert(core.ParsedLine{Raw: "concurrent"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
	stats := s.GetStats()
	assert.Equal(t, uint64(500), stats["total_inserted"])
	assert.Equal(t, uint64(400), stats["total_evicted"])

	// Oldest surviving record has sequence 401
	_, ok := s.Get(400)
	assert.False(t, ok)
	_, ok = s.Get(401)
	assert.True(t, ok)
}
