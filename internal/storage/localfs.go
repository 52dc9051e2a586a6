package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	metaExt   = ".meta"
	lockCount = 64
)

// LocalFS stores a bucket in a directory tree:
//
//	{dir}/{bucket}/
//	  objects/{key}      object content
//	  meta/{key}.meta    msgpack-encoded objectMeta
//	  tmp/               staging area for atomic writes
//
// An object's content and metadata files are committed and read under a
// per-key lock, so a reader never pairs one write's body with another's
// metadata.
type LocalFS struct {
	root   string
	logger zerolog.Logger
	now    func() time.Time
	locks  [lockCount]sync.Mutex
}

type objectMeta struct {
	Key          string       `msgpack:"key"`
	Size         int64        `msgpack:"size"`
	ETag         string       `msgpack:"etag"`
	Uploaded     time.Time    `msgpack:"uploaded"`
	HTTPMetadata HTTPMetadata `msgpack:"http_metadata"`
}

// NewLocalFS creates the directory layout for bucket under dir.
func NewLocalFS(dir, bucket string) (*LocalFS, error) {
	if dir == "" {
		return nil, fmt.Errorf("no data directory configured")
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	abs, err := filepath.Abs(filepath.Join(dir, bucket))
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{"objects", "meta", "tmp"} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return &LocalFS{root: abs, logger: zerolog.Nop(), now: time.Now}, nil
}

// SetLogger sets the logger used for non-fatal listing problems.
func (l *LocalFS) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

func (l *LocalFS) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (*Object, error) {
	dataPath, metaPath, err := l.paths(key)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "put-")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		return nil, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := objectMeta{
		Key:          key,
		Size:         n,
		ETag:         hex.EncodeToString(h.Sum(nil)),
		Uploaded:     l.now().UTC(),
		HTTPMetadata: HTTPMetadata{ContentType: opts.ContentType},
	}
	encoded, err := msgpack.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	if err := l.commit(key, tmp.Name(), dataPath, metaPath, encoded); err != nil {
		return nil, err
	}

	obj := meta.object()
	return &obj, nil
}

func (l *LocalFS) Get(ctx context.Context, key string) (*ObjectBody, error) {
	dataPath, metaPath, err := l.paths(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()

	meta, err := l.readMeta(metaPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return &ObjectBody{Object: meta.object(), Body: f}, nil
}

func (l *LocalFS) Head(ctx context.Context, key string) (*Object, error) {
	_, metaPath, err := l.paths(key)
	if err != nil {
		return nil, err
	}

	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()

	meta, err := l.readMeta(metaPath)
	if err != nil {
		return nil, err
	}
	obj := meta.object()
	return &obj, nil
}

func (l *LocalFS) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	metaDir := filepath.Join(l.root, "meta")

	var keys []string
	err := filepath.WalkDir(metaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaExt) {
			return nil
		}
		rel, err := filepath.Rel(metaDir, path)
		if err != nil {
			return nil
		}
		keys = append(keys, filepath.ToSlash(strings.TrimSuffix(rel, metaExt)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk meta dir: %w", err)
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
		meta, err := l.readMeta(filepath.Join(metaDir, filepath.FromSlash(k)+metaExt))
		if err != nil {
			// Deleted between the walk and the read.
			l.logger.Warn().Err(err).Str("key", k).Msg("skipping unreadable object metadata")
			continue
		}
		res.Objects = append(res.Objects, meta.object())
	}
	if res.DelimitedPrefixes == nil {
		res.DelimitedPrefixes = []string{}
	}
	return res, nil
}

func (l *LocalFS) Delete(ctx context.Context, key string) error {
	dataPath, metaPath, err := l.paths(key)
	if err != nil {
		return err
	}

	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(metaPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	if err := os.Remove(dataPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	removeEmptyParents(filepath.Dir(dataPath), filepath.Join(l.root, "objects"))
	removeEmptyParents(filepath.Dir(metaPath), filepath.Join(l.root, "meta"))
	return nil
}

// commit moves the staged content into place and writes its metadata.
func (l *LocalFS) commit(key, staged, dataPath, metaPath string, encoded []byte) error {
	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return err
	}
	if err := os.Rename(staged, dataPath); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}
	return l.writeMeta(metaPath, encoded)
}

func (l *LocalFS) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.locks[h.Sum32()%lockCount]
}

func (l *LocalFS) paths(key string) (string, string, error) {
	if err := ValidateKey(key); err != nil {
		return "", "", err
	}
	clean := strings.TrimPrefix(filepath.Clean("/"+filepath.FromSlash(key)), string(os.PathSeparator))
	if clean == "" || clean == "." || clean != filepath.FromSlash(key) {
		return "", "", fmt.Errorf("%w: %q is not a clean path", ErrInvalidKey, key)
	}
	return filepath.Join(l.root, "objects", clean), filepath.Join(l.root, "meta", clean+metaExt), nil
}

func (l *LocalFS) readMeta(path string) (*objectMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta objectMeta
	if err := msgpack.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

func (l *LocalFS) writeMeta(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "meta-")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}

func (m *objectMeta) object() Object {
	return Object{
		Key:          m.Key,
		Size:         m.Size,
		ETag:         m.ETag,
		Uploaded:     m.Uploaded,
		HTTPMetadata: m.HTTPMetadata,
	}
}

func removeEmptyParents(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

var _ Bucket = (*LocalFS)(nil)
