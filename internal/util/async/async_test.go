package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_CollectsAllResults(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { return nil }},
		{Name: "b", Func: func(context.Context) error { return boom }},
		{Name: "c", Func: func(context.Context) error { return nil }},
	}

	results := RunAll(context.Background(), tasks)
	require.Len(t, results, 3)
	// Results stay in task order regardless of completion order.
	assert.Equal(t, "a", results[0].Name)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
}

func TestRunAll_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, RunAll(context.Background(), nil))
}

func TestRunAll_RunsConcurrently(t *testing.T) {
	t.Parallel()
	var running atomic.Int32
	gate := make(chan struct{})

	wait := func(context.Context) error {
		if running.Add(1) == 3 {
			close(gate)
		}
		<-gate
		return nil
	}

	results := RunAll(context.Background(), []Task{
		{Name: "a", Func: wait},
		{Name: "b", Func: wait},
		{Name: "c", Func: wait},
	})
	require.Len(t, results, 3)
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
}

func TestRunParallel_FirstError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	err := RunParallel(context.Background(), []Task{
		{Name: "ok", Func: func(context.Context) error { return nil }},
		{Name: "bad", Func: func(context.Context) error { return boom }},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
}
