package cbz

import (
	"context"

	"github.com/pkg/errors"
)

// ErrTimeout is returned when an archive read does not complete before the
// context expires. A slow or corrupt archive must not stall a worker forever.
var ErrTimeout = errors.New("cbz: archive read timed out")

type pageResult struct {
	data []byte
	n    int
	err  error
}

// CountPagesContext is CountPages bounded by ctx. The underlying read cannot
// be interrupted, so on expiry the goroutine is abandoned and its result
// discarded.
func CountPagesContext(ctx context.Context, path string) (int, error) {
	ch := make(chan pageResult, 1)
	go func() {
		n, err := CountPages(path)
		ch <- pageResult{n: n, err: err}
	}()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-ctx.Done():
		return 0, errors.WithStack(ErrTimeout)
	}
}

// ReadPageAtContext is ReadPageAt bounded by ctx.
func ReadPageAtContext(ctx context.Context, path string, index int) ([]byte, error) {
	ch := make(chan pageResult, 1)
	go func() {
		data, err := ReadPageAt(path, index)
		ch <- pageResult{data: data, err: err}
	}()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, errors.WithStack(ErrTimeout)
	}
}

// ReadFirstPageContext is ReadFirstPage bounded by ctx.
func ReadFirstPageContext(ctx context.Context, path string) ([]byte, error) {
	ch := make(chan pageResult, 1)
	go func() {
		data, err := ReadFirstPage(path)
		ch <- pageResult{data: data, err: err}
	}()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, errors.WithStack(ErrTimeout)
	}
}
