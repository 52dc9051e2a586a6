package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"
)

// Memory is an in-process Bucket. Contents are lost when the process exits.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	meta Object
	data []byte
}

// NewMemory returns an empty in-memory bucket.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (*Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := md5.Sum(data)
	meta := Object{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		Uploaded:     m.now().UTC(),
		HTTPMetadata: HTTPMetadata{ContentType: opts.ContentType},
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{meta: meta, data: data}
	m.mu.Unlock()

	return &meta, nil
}

func (m *Memory) Get(ctx context.Context, key string) (*ObjectBody, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &ObjectBody{Object: obj.meta, Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (m *Memory) Head(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	meta := obj.meta
	return &meta, nil
}

func (m *Memory) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}

	p, err := paginate(keys, opts)
	if err != nil {
		return nil, err
	}

	res := &ListResult{
		Objects:           make([]Object, 0, len(p.keys)),
		Truncated:         p.truncated,
		Cursor:            p.cursor,
		DelimitedPrefixes: p.prefixes,
	}
	for _, k := range p.keys {
		res.Objects = append(res.Objects, m.objects[k].meta)
	}
	if res.DelimitedPrefixes == nil {
		res.DelimitedPrefixes = []string{}
	}
	return res, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

var _ Bucket = (*Memory)(nil)
