package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedBoards(n int) Boards {
	var boards = make(Boards, n)
	for i := range boards {
		boards[i].Score = int16(i)
	}
	return boards
}

func TestLoaderOnePassIsPermutation(t *testing.T) {
	const size, batchSize = 1000, 100
	var loader = NewLoader(numberedBoards(size), size)

	var scores []int
	var batches = 0
	var err = loader.MapBatches(context.Background(), batchSize, func(batch []ChessBoard) bool {
		assert.Len(t, batch, batchSize)
		for i := range batch {
			scores = append(scores, int(batch[i].Score))
		}
		batches++
		return batches == size/batchSize
	})
	require.NoError(t, err)

	var identity = true
	for i, s := range scores {
		if s != i {
			identity = false
		}
	}
	assert.False(t, identity)

	sort.Ints(scores)
	for i, s := range scores {
		require.Equal(t, i, s)
	}
}

func TestLoaderCyclesSource(t *testing.T) {
	var loader = NewLoader(numberedBoards(7), 5)

	var total = 0
	var err = loader.MapBatches(context.Background(), 2, func(batch []ChessBoard) bool {
		assert.LessOrEqual(t, len(batch), 2)
		total += len(batch)
		return total >= 70
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 70)
}

func TestLoaderStopsForAnyQueueDepth(t *testing.T) {
	for _, depth := range []int{0, 1, 16} {
		t.Run(fmt.Sprint(depth), func(t *testing.T) {
			var before = runtime.NumGoroutine()
			var loader = &Loader{
				Source:     numberedBoards(64),
				BufferSize: 16,
				QueueDepth: depth,
			}

			var calls = 0
			var err = loader.MapBatches(context.Background(), 4, func(batch []ChessBoard) bool {
				calls++
				return calls == 3
			})
			require.NoError(t, err)
			assert.Equal(t, 3, calls)
			assert.Eventually(t, func() bool {
				return runtime.NumGoroutine() <= before
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestLoaderContextCancel(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var loader = NewLoader(numberedBoards(64), 16)
	var calls = 0
	var err = loader.MapBatches(ctx, 8, func(batch []ChessBoard) bool {
		calls++
		if calls == 2 {
			cancel()
		}
		return calls == 100
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 100)
}

func TestLoaderErrors(t *testing.T) {
	var err = NewLoader(Boards{}, 16).MapBatches(context.Background(), 4, func([]ChessBoard) bool {
		t.Fatal("no batch expected")
		return true
	})
	assert.ErrorContains(t, err, "no records")

	var path = filepath.Join(t.TempDir(), "bad.epd")
	require.NoError(t, os.WriteFile(path, []byte("not a position\n"), 0644))
	err = NewLoader(TextFile{Path: path}, 16).MapBatches(context.Background(), 4, func([]ChessBoard) bool {
		return true
	})
	assert.ErrorContains(t, err, path+":1:")

	err = NewLoader(Boards{{}}, 16).MapBatches(context.Background(), 0, func([]ChessBoard) bool {
		return true
	})
	assert.Error(t, err)
}

func TestShuffleKeepsRecords(t *testing.T) {
	var boards = numberedBoards(50)
	Shuffle(boards)
	var seen = make(map[int16]bool)
	for _, b := range boards {
		seen[b.Score] = true
	}
	assert.Len(t, seen, 50)
}

func TestShuffleGeneratorsDiffer(t *testing.T) {
	var a, b = newXorshift(), newXorshift()
	assert.NotEqual(t, a.state, b.state)

	var first, second = numberedBoards(50), numberedBoards(50)
	Shuffle(first)
	Shuffle(second)
	assert.NotEqual(t, first, second)

	var rng = newXorshift()
	first, second = numberedBoards(50), numberedBoards(50)
	rng.shuffle(first)
	rng.shuffle(second)
	assert.NotEqual(t, first, second)
}
