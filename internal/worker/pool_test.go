package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ResultsInInputOrder(t *testing.T) {
	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	pool := NewPool(7, func(_ context.Context, n int) (string, error) {
		return strconv.Itoa(n * n), nil
	})
	tasks := pool.Execute(context.Background(), inputs)

	require.Len(t, tasks, len(inputs))
	for i, task := range tasks {
		require.NoError(t, task.Err)
		assert.Equal(t, i, task.Input)
		assert.Equal(t, strconv.Itoa(i*i), task.Result)
	}
}

func TestPool_ErrorsStayWithTheirInput(t *testing.T) {
	errOdd := errors.New("odd")
	pool := NewPool(3, func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n, nil
	})

	tasks := pool.Execute(context.Background(), []int{0, 1, 2, 3})
	assert.NoError(t, tasks[0].Err)
	assert.ErrorIs(t, tasks[1].Err, errOdd)
	assert.NoError(t, tasks[2].Err)
	assert.Equal(t, 2, tasks[2].Result)
	assert.ErrorIs(t, tasks[3].Err, errOdd)
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	pool := NewPool(2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	tasks := pool.Execute(ctx, []int{1, 2, 3, 4, 5})

	require.Len(t, tasks, 5)
	failed := 0
	for _, task := range tasks {
		if task.Err != nil {
			assert.ErrorIs(t, task.Err, context.Canceled)
			failed++
		}
	}
	assert.Equal(t, 5, failed+int(calls.Load()))
}

func TestPool_EmptyAndMinimumWorkers(t *testing.T) {
	pool := NewPool(0, func(_ context.Context, n int) (int, error) { return n, nil })
	assert.Equal(t, 1, pool.Workers())
	assert.Empty(t, pool.Execute(context.Background(), nil))
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, Batch([]int{1, 2}, 0))
	assert.Nil(t, Batch([]int{}, 3))
}
