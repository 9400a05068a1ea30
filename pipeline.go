package bitvid

import (
	"context"
	"errors"
	"sync"

	"github.com/bodgit/bitvid/container"
	"github.com/bodgit/bitvid/frame"
	"github.com/bodgit/bitvid/quant"
)

// Both encode passes are scatter/gather over frame indices: workers pull
// indices off a channel and each index's result slot is owned by exactly
// one worker, so results land in original frame order with no
// re-sequencing step and no shared mutable state.

func produceIndices(ctx context.Context, n int) (<-chan int, <-chan error) {
	out := make(chan int)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i := 0; i < n; i++ {
			select {
			case out <- i:
			case <-ctx.Done():
				errc <- errors.New("encode cancelled")
				return
			}
		}
	}()
	return out, errc
}

// quantizeWorker loads, scales and quantizes the frames whose indices it
// receives. Each frame is independent of every other.
func (m *BitVid) quantizeWorker(in <-chan int, paths []string, q *quant.Quantizer, out []*frame.Bitmap) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for i := range in {
			img, err := loadImage(paths[i])
			if err != nil {
				errc <- err
				return
			}
			bm, err := q.Frame(img)
			if err != nil {
				errc <- err
				return
			}
			out[i] = bm
		}
	}()
	return errc
}

// deltaWorker compresses the frames whose indices it receives. A worker
// needs only the previous quantized frame, which the first pass already
// produced, so adjacent pairs carry no cross-worker ordering dependency.
func (m *BitVid) deltaWorker(in <-chan int, frames []*frame.Bitmap, out []container.Record) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for i := range in {
			var prev *frame.Bitmap
			if i > 0 {
				prev = frames[i-1]
			}
			out[i] = container.EncodeRecord(prev, frames[i])
		}
	}()
	return errc
}

// quantizePass runs the first parallel pass: every source image becomes a
// quantized frame at the video's geometry.
func (m *BitVid) quantizePass(q *quant.Quantizer, paths []string, jobs int) ([]*frame.Bitmap, error) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	frames := make([]*frame.Bitmap, len(paths))

	in, errc := produceIndices(ctx, len(paths))
	errcList := []<-chan error{errc}
	for i := 0; i < jobs; i++ {
		errcList = append(errcList, m.quantizeWorker(in, paths, q, frames))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}
	return frames, nil
}

// deltaPass runs the second parallel pass: every (previous, current) pair
// of quantized frames becomes a Full or Delta record.
func (m *BitVid) deltaPass(frames []*frame.Bitmap, jobs int) ([]container.Record, error) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	records := make([]container.Record, len(frames))

	in, errc := produceIndices(ctx, len(frames))
	errcList := []<-chan error{errc}
	for i := 0; i < jobs; i++ {
		errcList = append(errcList, m.deltaWorker(in, frames, records))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}
	return records, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
