package main

import (
	"context"
	"io"
	"sync"

	"github.com/soypat/dissect/dispatch"
)

type frameSource interface {
	Next() (dispatch.Frame, error)
}

type job struct {
	seq int
	frm dispatch.Frame
}

type done struct {
	seq int
	res *dispatch.Result
}

// dissectAll dissects every frame of src across workers goroutines and calls
// emit with the results in capture order. It stops at the first error of src
// or emit, or when ctx is done.
func dissectAll(ctx context.Context, src frameSource, e *dispatch.Engine, workers int, emit func(*dispatch.Result) error) error {
	workers = max(1, workers)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs := make(chan job, workers)
	results := make(chan done, workers)

	var readErr error
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer close(jobs)
		for seq := 0; ; seq++ {
			frm, err := src.Next()
			if err != nil {
				if err != io.EOF {
					readErr = err
				}
				return
			}
			select {
			case jobs <- job{seq: seq, frm: frm}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := e.Dissect(j.frm)
				select {
				case results <- done{seq: j.seq, res: res}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Re-order results: workers finish out of order.
	pending := make(map[int]*dispatch.Result)
	next := 0
	var emitErr error
	for d := range results {
		if emitErr != nil {
			continue // Drain so workers exit.
		}
		pending[d.seq] = d.res
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if emitErr = emit(res); emitErr != nil {
				cancel()
				break
			}
		}
	}
	<-readDone
	if emitErr != nil {
		return emitErr
	} else if readErr != nil {
		return readErr
	}
	return ctx.Err()
}
