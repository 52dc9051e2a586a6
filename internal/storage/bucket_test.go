package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drivers(t *testing.T) map[string]Bucket {
	t.Helper()
	lfs, err := NewLocalFS(t.TempDir(), "wake-word-training-data")
	require.NoError(t, err)
	return map[string]Bucket{
		"memory":  NewMemory(),
		"localfs": lfs,
	}
}

func putString(t *testing.T, b Bucket, key, body string) *Object {
	t.Helper()
	obj, err := b.Put(context.Background(), key, bytes.NewBufferString(body), PutOptions{ContentType: "audio/webm"})
	require.NoError(t, err)
	return obj
}

func TestBucket_PutGetHead(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := bytes.Repeat([]byte("wav"), 1000)
			sum := md5.Sum(payload)

			obj, err := b.Put(ctx, "okay_nabu-male-1.webm", bytes.NewReader(payload), PutOptions{ContentType: "audio/webm"})
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), obj.Size)
			assert.Equal(t, hex.EncodeToString(sum[:]), obj.ETag)
			assert.False(t, obj.Uploaded.IsZero())

			got, err := b.Get(ctx, "okay_nabu-male-1.webm")
			require.NoError(t, err)
			defer got.Body.Close()
			data, err := io.ReadAll(got.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			assert.Equal(t, "audio/webm", got.HTTPMetadata.ContentType)
			assert.Equal(t, int64(len(payload)), got.Size)

			head, err := b.Head(ctx, "okay_nabu-male-1.webm")
			require.NoError(t, err)
			assert.Equal(t, obj.ETag, head.ETag)
		})
	}
}

func TestBucket_NotFound(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := b.Get(ctx, "missing.webm")
			assert.ErrorIs(t, err, ErrObjectNotFound)
			_, err = b.Head(ctx, "missing.webm")
			assert.True(t, IsNotFound(err))
			assert.ErrorIs(t, b.Delete(ctx, "missing.webm"), ErrObjectNotFound)
		})
	}
}

func TestBucket_Overwrite(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			putString(t, b, "k.webm", "first")
			putString(t, b, "k.webm", "second!")

			got, err := b.Get(context.Background(), "k.webm")
			require.NoError(t, err)
			defer got.Body.Close()
			data, _ := io.ReadAll(got.Body)
			assert.Equal(t, "second!", string(data))
			assert.Equal(t, int64(7), got.Size)
		})
	}
}

func TestBucket_Delete(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			putString(t, b, "dir/k.webm", "x")
			require.NoError(t, b.Delete(ctx, "dir/k.webm"))

			_, err := b.Get(ctx, "dir/k.webm")
			assert.ErrorIs(t, err, ErrObjectNotFound)

			res, err := b.List(ctx, ListOptions{})
			require.NoError(t, err)
			assert.Empty(t, res.Objects)
		})
	}
}

func TestBucket_InvalidKey(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Put(context.Background(), "", bytes.NewBufferString("x"), PutOptions{})
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestBucket_ListPagination(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				putString(t, b, fmt.Sprintf("okay_nabu-%d.webm", i), "x")
			}
			putString(t, b, "negative-hey_nabu-0.webm", "x")

			first, err := b.List(ctx, ListOptions{Prefix: "okay_nabu-", Limit: 2})
			require.NoError(t, err)
			require.Len(t, first.Objects, 2)
			assert.True(t, first.Truncated)
			assert.NotEmpty(t, first.Cursor)
			assert.Equal(t, "okay_nabu-0.webm", first.Objects[0].Key)
			assert.Equal(t, "okay_nabu-1.webm", first.Objects[1].Key)

			again, err := b.List(ctx, ListOptions{Prefix: "okay_nabu-", Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, first, again)

			var keys []string
			cursor := first.Cursor
			for cursor != "" {
				res, err := b.List(ctx, ListOptions{Prefix: "okay_nabu-", Limit: 2, Cursor: cursor})
				require.NoError(t, err)
				for _, o := range res.Objects {
					keys = append(keys, o.Key)
				}
				cursor = res.Cursor
				if !res.Truncated {
					assert.Empty(t, res.Cursor)
				}
			}
			assert.Equal(t, []string{"okay_nabu-2.webm", "okay_nabu-3.webm", "okay_nabu-4.webm"}, keys)

			all, err := b.List(ctx, ListOptions{})
			require.NoError(t, err)
			assert.Len(t, all.Objects, 6)
			assert.False(t, all.Truncated)
			assert.NotNil(t, all.DelimitedPrefixes)
		})
	}
}

func TestBucket_ListDelimiter(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			putString(t, b, "a/1.webm", "x")
			putString(t, b, "a/2.webm", "x")
			putString(t, b, "b.webm", "x")
			putString(t, b, "c/1.webm", "x")

			res, err := b.List(ctx, ListOptions{Delimiter: "/"})
			require.NoError(t, err)
			assert.Equal(t, []string{"a/", "c/"}, res.DelimitedPrefixes)
			require.Len(t, res.Objects, 1)
			assert.Equal(t, "b.webm", res.Objects[0].Key)

			p1, err := b.List(ctx, ListOptions{Delimiter: "/", Limit: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"a/"}, p1.DelimitedPrefixes)
			p2, err := b.List(ctx, ListOptions{Delimiter: "/", Limit: 1, Cursor: p1.Cursor})
			require.NoError(t, err)
			require.Len(t, p2.Objects, 1)
			assert.Equal(t, "b.webm", p2.Objects[0].Key)
		})
	}
}

func TestBucket_InvalidCursor(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.List(context.Background(), ListOptions{Cursor: "!!not-base64!!"})
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestBucket_ConcurrentPuts(t *testing.T) {
	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := b.Put(context.Background(), fmt.Sprintf("k-%02d.webm", i), bytes.NewBufferString("x"), PutOptions{})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			res, err := b.List(context.Background(), ListOptions{})
			require.NoError(t, err)
			assert.Len(t, res.Objects, 16)
		})
	}
}

func TestBucket_ConcurrentOverwritesStayConsistent(t *testing.T) {
	checkConsistent := func(t *testing.T, obj *ObjectBody) {
		t.Helper()
		defer obj.Body.Close()
		data, err := io.ReadAll(obj.Body)
		if !assert.NoError(t, err) {
			return
		}
		sum := md5.Sum(data)
		assert.Equal(t, obj.Size, int64(len(data)))
		assert.Equal(t, hex.EncodeToString(sum[:]), obj.ETag)
	}

	for name, b := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for round := 0; round < 50; round++ {
				var wg sync.WaitGroup
				for _, size := range []int{100, 200, 300, 400} {
					wg.Add(1)
					go func(size int) {
						defer wg.Done()
						_, err := b.Put(ctx, "k.webm", bytes.NewReader(bytes.Repeat([]byte{byte(size / 100)}, size)), PutOptions{})
						assert.NoError(t, err)
					}(size)
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					obj, err := b.Get(ctx, "k.webm")
					if IsNotFound(err) || !assert.NoError(t, err) {
						return
					}
					checkConsistent(t, obj)
				}()
				wg.Wait()

				obj, err := b.Get(ctx, "k.webm")
				require.NoError(t, err)
				checkConsistent(t, obj)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, MaxListLimit, ClampLimit(0))
	assert.Equal(t, MaxListLimit, ClampLimit(-3))
	assert.Equal(t, MaxListLimit, ClampLimit(5000))
	assert.Equal(t, 10, ClampLimit(10))
}

func TestCursorRoundTrip(t *testing.T) {
	key, err := DecodeCursor(EncodeCursor("okay_nabu-1.webm"))
	require.NoError(t, err)
	assert.Equal(t, "okay_nabu-1.webm", key)

	key, err = DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, key)
}
