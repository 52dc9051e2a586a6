package storage

import (
	"context"
	"io"
	"time"
)

// Observer receives one callback per storage operation.
type Observer interface {
	ObserveStorage(op string, bytes int64, err error, dur time.Duration)
}

type observedBucket struct {
	next Bucket
	obs  Observer
}

// WithObserver wraps b so every operation is reported to obs. Not-found
// results are reported as successes.
func WithObserver(b Bucket, obs Observer) Bucket {
	if obs == nil {
		return b
	}
	return &observedBucket{next: b, obs: obs}
}

func (o *observedBucket) report(op string, start time.Time, n int64, err error) {
	if IsNotFound(err) {
		err = nil
	}
	o.obs.ObserveStorage(op, n, err, time.Since(start))
}

func (o *observedBucket) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (*Object, error) {
	start := time.Now()
	obj, err := o.next.Put(ctx, key, r, opts)
	var n int64
	if obj != nil {
		n = obj.Size
	}
	o.report("put", start, n, err)
	return obj, err
}

func (o *observedBucket) Get(ctx context.Context, key string) (*ObjectBody, error) {
	start := time.Now()
	obj, err := o.next.Get(ctx, key)
	var n int64
	if obj != nil {
		n = obj.Size
	}
	o.report("get", start, n, err)
	return obj, err
}

func (o *observedBucket) Head(ctx context.Context, key string) (*Object, error) {
	start := time.Now()
	obj, err := o.next.Head(ctx, key)
	o.report("head", start, 0, err)
	return obj, err
}

func (o *observedBucket) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	start := time.Now()
	res, err := o.next.List(ctx, opts)
	o.report("list", start, 0, err)
	return res, err
}

func (o *observedBucket) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.next.Delete(ctx, key)
	o.report("delete", start, 0, err)
	return err
}
