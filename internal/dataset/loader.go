package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/sync/errgroup"
)

const DefaultQueueDepth = 16

// Loader streams a source forever as shuffled batches.
type Loader struct {
	Source Source
	// BufferSize is the number of records shuffled together.
	BufferSize int
	// QueueDepth is the number of batches prepared ahead of the consumer.
	QueueDepth int
}

func NewLoader(source Source, bufferSize int) *Loader {
	return &Loader{
		Source:     source,
		BufferSize: bufferSize,
		QueueDepth: DefaultQueueDepth,
	}
}

// MapBatches calls f with consecutive batches of at most batchSize records
// until f returns true, ctx is done or reading fails. The last batch cut from
// a shuffle buffer may be short. All workers have exited when it returns.
func (l *Loader) MapBatches(
	ctx context.Context,
	batchSize int,
	f func(batch []ChessBoard) bool,
) error {
	if batchSize <= 0 || l.BufferSize <= 0 {
		return fmt.Errorf("loader: bad batch size %v or buffer size %v", batchSize, l.BufferSize)
	}

	var cancelCtx, cancel = context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(cancelCtx)

	var buffers = make(chan []ChessBoard)
	var batches = make(chan []ChessBoard, max(l.QueueDepth, 0))

	g.Go(func() error {
		defer close(buffers)
		return l.shuffleBuffers(gctx, buffers)
	})

	g.Go(func() error {
		defer close(batches)
		return splitBatches(gctx, batchSize, buffers, batches)
	})

loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case batch, ok := <-batches:
			if !ok || f(batch) {
				break loop
			}
		}
	}
	cancel()

	var err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (l *Loader) shuffleBuffers(ctx context.Context, buffers chan<- []ChessBoard) error {
	var rng = newXorshift()
	var buffer = make([]ChessBoard, 0, l.BufferSize)
	for pass := 0; ; pass++ {
		var r, err = l.Source.Open()
		if err != nil {
			return err
		}
		var count = 0
		for {
			var board, err = r.Next()
			if err != nil {
				r.Close()
				if !errors.Is(err, io.EOF) {
					return err
				}
				break
			}
			count++
			buffer = append(buffer, board)
			if len(buffer) == l.BufferSize {
				rng.shuffle(buffer)
				select {
				case <-ctx.Done():
					r.Close()
					return ctx.Err()
				case buffers <- buffer:
				}
				buffer = make([]ChessBoard, 0, l.BufferSize)
			}
		}
		if count == 0 {
			return fmt.Errorf("loader: source %v has no records", l.Source)
		}
		if pass == 0 {
			log.Println("loader",
				"source", l.Source,
				"records", count)
		}
	}
}

func splitBatches(
	ctx context.Context,
	batchSize int,
	buffers <-chan []ChessBoard,
	batches chan<- []ChessBoard,
) error {
	for buffer := range buffers {
		for len(buffer) > 0 {
			var n = min(batchSize, len(buffer))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case batches <- buffer[:n:n]:
			}
			buffer = buffer[n:]
		}
	}
	return nil
}
