package chart

import (
	"context"

	"github.com/rickgao/botwatch/internal/history"
)

// Feed is a hydrated series plus its live appends.
type Feed[T any] struct {
	Initial []T

	c      chan T
	reset  chan struct{}
	done   chan struct{}
	stop   context.CancelFunc
	lagged func() bool
}

// C receives points appended after Initial. Closed when the feed stops.
func (f *Feed[T]) C() <-chan T { return f.c }

// Reset is signalled when the underlying history was cleared; the chart should clear too.
func (f *Feed[T]) Reset() <-chan struct{} { return f.reset }

// Lagged reports whether points were dropped because the consumer fell behind.
// A lagged feed has gaps; close it and open a new one to re-hydrate.
func (f *Feed[T]) Lagged() bool { return f.lagged() }

// Close stops the feed and waits for its goroutine.
func (f *Feed[T]) Close() {
	f.stop()
	<-f.done
}

// ProbFeed hydrates a market's probability chart and streams later points.
func ProbFeed(ctx context.Context, buf *history.Buffer, slug string) *Feed[ProbPoint] {
	points, sub := buf.SubscribeProb(slug)
	return startFeed(ctx, ProbSeries(points), sub, FromProb)
}

// BtcFeed hydrates the BTC price line and streams later points.
func BtcFeed(ctx context.Context, buf *history.Buffer) *Feed[LinePoint] {
	points, sub := buf.SubscribeBtc()
	return startFeed(ctx, BtcLine(points), sub, func(p history.BtcPoint) LinePoint {
		return LinePoint{Time: p.Time, Value: p.Price}
	})
}

func startFeed[S, T any](ctx context.Context, initial []T, sub *history.Subscription[S], conv func(S) T) *Feed[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed[T]{
		Initial: initial,
		c:       make(chan T, 64),
		reset:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		stop:    cancel,
		lagged:  sub.Lagged,
	}

	go func() {
		defer close(f.done)
		defer close(f.c)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Reset():
				select {
				case f.reset <- struct{}{}:
				default:
				}
			case p, ok := <-sub.C():
				if !ok {
					return
				}
				select {
				case f.c <- conv(p):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return f
}
