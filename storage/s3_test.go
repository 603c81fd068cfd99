package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/persist/storage"
)

// fakeObjectClient is an in-memory bucket that pages listings two keys at a
// time so the paginator path is exercised.
type fakeObjectClient struct {
	mu       sync.Mutex
	objects  map[string][]byte
	headErr  error
	failPuts bool
	pageSize int
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{objects: make(map[string][]byte), pageSize: 2}
}

func (f *fakeObjectClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(bytes.Clone(data)))}, nil
}

func (f *fakeObjectClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPuts {
		return nil, errors.New("connection reset by peer")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjectClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjectClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestObjectStore_Contract(t *testing.T) {
	testBackendContract(t, func(t *testing.T) storage.Backend {
		return storage.NewObjectStoreWithClient(newFakeObjectClient(), "agents")
	})
}

func TestObjectStore_ListDirAcrossPages(t *testing.T) {
	client := newFakeObjectClient()
	b := storage.NewObjectStoreWithClient(client, "agents")
	ctx := context.Background()

	for i := range 7 {
		require.NoError(t, b.WriteText(ctx, "wallets/"+strconv.Itoa(i)+".json", "{}"))
	}
	require.NoError(t, b.WriteText(ctx, "wallets/", ""))
	require.NoError(t, b.WriteText(ctx, "wallets/old/9.json", "{}"))
	require.NoError(t, b.WriteText(ctx, "walletsx.json", "{}"))

	names, err := b.ListDir(ctx, "wallets")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.json", "1.json", "2.json", "3.json", "4.json", "5.json", "6.json"}, names)
}

func TestObjectStore_ListDirRoot(t *testing.T) {
	client := newFakeObjectClient()
	b := storage.NewObjectStoreWithClient(client, "agents")
	ctx := context.Background()

	require.NoError(t, b.WriteText(ctx, "root.txt", "x"))
	require.NoError(t, b.WriteText(ctx, "nested/child.txt", "y"))

	names, err := b.ListDir(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"root.txt"}, names)
}

func TestObjectStore_ExistsTreatsAnyErrorAsAbsent(t *testing.T) {
	client := newFakeObjectClient()
	b := storage.NewObjectStoreWithClient(client, "agents")
	ctx := context.Background()

	require.NoError(t, b.WriteText(ctx, "states/1_state.json", "{}"))
	client.headErr = errors.New("AccessDenied: forbidden")

	assert.False(t, b.Exists(ctx, "states/1_state.json"))
}

func TestObjectStore_WriteFailureIsUnavailable(t *testing.T) {
	client := newFakeObjectClient()
	client.failPuts = true
	b := storage.NewObjectStoreWithClient(client, "agents")

	err := b.WriteText(context.Background(), "registry/tokens.json", "{}")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestObjectStore_KeysAreVerbatim(t *testing.T) {
	client := newFakeObjectClient()
	b := storage.NewObjectStoreWithClient(client, "agents")

	require.NoError(t, b.WriteBytes(context.Background(), "conversations/3_a_b.md", []byte("hi")))

	_, ok := client.objects["conversations/3_a_b.md"]
	assert.True(t, ok)
}
