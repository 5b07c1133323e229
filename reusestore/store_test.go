package reusestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastbot/reuse-core/reusemodel"
)

func TestRecordAccumulatesWidgetCounts(t *testing.T) {
	s := New(nil)
	widgets := []reusemodel.Widget{{Hash: 1, Text: "a"}, {Hash: 2, Text: "b"}}

	s.Record(100, reusemodel.ActionSimilarityAttributes{}, widgets)
	s.Record(100, reusemodel.ActionSimilarityAttributes{}, widgets)

	require.True(t, s.Has(100))
	assert.Equal(t, int64(4), s.TotalCount(100))
}

func TestUnvisitedCount(t *testing.T) {
	s := New(nil)
	widgets := []reusemodel.Widget{{Hash: 1}, {Hash: 2}, {Hash: 3}}
	s.Record(100, reusemodel.ActionSimilarityAttributes{}, widgets)
	s.Record(100, reusemodel.ActionSimilarityAttributes{}, widgets)

	visited := map[uint64]bool{1: true}
	assert.Equal(t, int64(4), s.UnvisitedCount(100, visited), "widgets 2 and 3, count 2 each")
}

func TestLookupEntryReturnsNilForAbsentAction(t *testing.T) {
	s := New(nil)
	assert.Nil(t, s.LookupEntry(999))
}

func TestLookupEntryIsACopy(t *testing.T) {
	s := New(nil)
	s.Record(1, reusemodel.ActionSimilarityAttributes{}, []reusemodel.Widget{{Hash: 1}})

	entry := s.LookupEntry(1)
	require.NotNil(t, entry)
	entry.Widgets[1].Count = 999

	assert.Equal(t, int64(1), s.TotalCount(1), "a looked-up copy must not alias store state")
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New(nil)
	s.Record(1, reusemodel.ActionSimilarityAttributes{ActionType: 2}, []reusemodel.Widget{{Hash: 10}})

	snap := s.Snapshot()

	other := New(nil)
	other.LoadSnapshot(snap)

	assert.Equal(t, int64(1), other.TotalCount(1))
	attrs, ok := other.LookupAttrs(1)
	require.True(t, ok)
	assert.Equal(t, int32(2), attrs.ActionType)
}

func TestActionHashes(t *testing.T) {
	s := New(nil)
	s.Record(1, reusemodel.ActionSimilarityAttributes{}, nil)
	s.Record(2, reusemodel.ActionSimilarityAttributes{}, nil)

	assert.Len(t, s.ActionHashes(), 2)
}
