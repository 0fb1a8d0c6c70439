package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishardev/orbi-sub001/internal/batch"
	"github.com/amishardev/orbi-sub001/internal/recommend"
)

type fakeEngine struct {
	failFor map[uint64]error
	calls   []recommend.Options
}

func (f *fakeEngine) Recommend(_ context.Context, userID uint64, opts recommend.Options) (*recommend.List, error) {
	f.calls = append(f.calls, opts)
	if err, ok := f.failFor[userID]; ok {
		return nil, err
	}
	return &recommend.List{
		UpdatedAt: time.Now().UTC(),
		Items: []recommend.ScoredRecommendation{
			{UserID: userID + 100, Score: 42, Reason: "Popular"},
		},
	}, nil
}

type fakePool struct {
	ids    []uint64
	active int64
}

func (f *fakePool) ActiveUserIDs(context.Context, int) ([]uint64, error) { return f.ids, nil }
func (f *fakePool) CountActive(context.Context) (int64, error) { return f.active, nil }

type fakeWriter struct {
	batches []map[uint64]*recommend.List
	err     error
}

func (f *fakeWriter) PutBatch(_ context.Context, lists map[uint64]*recommend.List) error {
	if f.err != nil {
		return f.err
	}
	copied := make(map[uint64]*recommend.List, len(lists))
	for k, v := range lists {
		copied[k] = v
	}
	f.batches = append(f.batches, copied)
	return nil
}

func TestRun_ProcessesWholePool(t *testing.T) {
	engine := &fakeEngine{}
	writer := &fakeWriter{}
	runner := &batch.Runner{
		Engine: engine,
		Pool:   &fakePool{ids: []uint64{1, 2, 3}, active: 1000},
		Recs:   writer,
	}

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 1, stats.Batches)
}

func TestRun_FailingUserIsSkipped(t *testing.T) {
	engine := &fakeEngine{failFor: map[uint64]error{2: errors.New("boom")}}
	writer := &fakeWriter{}
	runner := &batch.Runner{
		Engine: engine,
		Pool:   &fakePool{ids: []uint64{1, 2, 3, 4}, active: 1000},
		Recs:   writer,
	}

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Written)

	// users after the failing one were still written
	require.Len(t, writer.batches, 1)
	assert.Contains(t, writer.batches[0], uint64(3))
	assert.Contains(t, writer.batches[0], uint64(4))
	assert.NotContains(t, writer.batches[0], uint64(2))
}

func TestRun_CommitsEveryWriteBatchSize(t *testing.T) {
	ids := make([]uint64, 5)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	writer := &fakeWriter{}
	runner := &batch.Runner{
		Engine:         &fakeEngine{},
		Pool:           &fakePool{ids: ids, active: 1000},
		Recs:           writer,
		WriteBatchSize: 2,
	}

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Written)
	assert.Equal(t, 3, stats.Batches)
	require.Len(t, writer.batches, 3)
	assert.Len(t, writer.batches[0], 2)
	assert.Len(t, writer.batches[1], 2)
	assert.Len(t, writer.batches[2], 1)
}

func TestRun_SmallUserbaseBonus(t *testing.T) {
	engine := &fakeEngine{}
	runner := &batch.Runner{
		Engine:             engine,
		Pool:               &fakePool{ids: []uint64{1, 2}, active: 12},
		Recs:               &fakeWriter{},
		SmallUserbaseMax:   20,
		SmallUserbaseBonus: 15,
	}

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, engine.calls, 2)
	for _, opts := range engine.calls {
		assert.Equal(t, 15.0, opts.FlatBonus)
	}
}

func TestRun_NoBonusAboveThreshold(t *testing.T) {
	engine := &fakeEngine{}
	runner := &batch.Runner{
		Engine:             engine,
		Pool:               &fakePool{ids: []uint64{1}, active: 21},
		Recs:               &fakeWriter{},
		SmallUserbaseMax:   20,
		SmallUserbaseBonus: 15,
	}

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, engine.calls, 1)
	assert.Zero(t, engine.calls[0].FlatBonus)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &batch.Runner{
		Engine: &fakeEngine{},
		Pool:   &fakePool{ids: []uint64{1, 2}, active: 1000},
		Recs:   &fakeWriter{},
	}

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_WriteFailureAbortsRun(t *testing.T) {
	writer := &fakeWriter{err: errors.New("db down")}
	runner := &batch.Runner{
		Engine: &fakeEngine{},
		Pool:   &fakePool{ids: []uint64{1}, active: 1000},
		Recs:   writer,
	}

	_, err := runner.Run(context.Background())
	assert.EqualError(t, err, "db down")
}
