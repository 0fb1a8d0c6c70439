package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRanker_OrderAndTruncate(t *testing.T) {
	now := time.Now()
	scored := []scoredCandidate{
		{userID: 1, score: 10, lastActive: now},
		{userID: 2, score: 30, lastActive: now},
		{userID: 3, score: 20, lastActive: now},
	}

	r := &Ranker{TopN: 2}
	items := r.Rank(scored)

	assert.Len(t, items, 2)
	assert.Equal(t, uint64(2), items[0].UserID)
	assert.Equal(t, uint64(3), items[1].UserID)
}

func TestRanker_TieBreaks(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	scored := []scoredCandidate{
		{userID: 5, score: 20, lastActive: earlier},
		{userID: 4, score: 20, lastActive: now},
		{userID: 2, score: 20, lastActive: earlier},
	}

	r := &Ranker{TopN: 10}
	items := r.Rank(scored)

	// score equal: most recently active first, then ascending id.
	assert.Equal(t, uint64(4), items[0].UserID)
	assert.Equal(t, uint64(2), items[1].UserID)
	assert.Equal(t, uint64(5), items[2].UserID)
}

func TestRanker_StableAcrossRuns(t *testing.T) {
	now := time.Now()
	build := func() []scoredCandidate {
		return []scoredCandidate{
			{userID: 7, score: 20, lastActive: now},
			{userID: 3, score: 20, lastActive: now},
			{userID: 9, score: 50, lastActive: now},
			{userID: 1, score: 20, lastActive: now.Add(-time.Minute)},
		}
	}

	r := &Ranker{TopN: 10}
	first := r.Rank(build())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Rank(build()))
	}
}

func TestRanker_ScoreFloor(t *testing.T) {
	scored := []scoredCandidate{
		{userID: 1, score: 50},
		{userID: 2, score: 30}, // at the floor: discarded
		{userID: 3, score: 10},
	}

	r := &Ranker{TopN: 10, ScoreFloor: 30}
	items := r.Rank(scored)

	assert.Len(t, items, 1)
	assert.Equal(t, uint64(1), items[0].UserID)
}

func TestRanker_EmptyInput(t *testing.T) {
	r := &Ranker{TopN: 5}
	items := r.Rank(nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
