package s3mirror_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/avatarctic/node-cache/internal/infrastructure/s3mirror"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	// bodyErr, if set, fails the body read after half of the object.
	bodyErr error
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	if f.bodyErr != nil {
		body := io.MultiReader(bytes.NewReader(data[:len(data)/2]), errReader{f.bodyErr})
		return &s3.GetObjectOutput{Body: io.NopCloser(body)}, nil
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMirror_FetchMissingObject(t *testing.T) {
	m := s3mirror.NewWithAPI(&fakeS3{objects: map[string][]byte{}}, "bucket", "cache.db", quietLogger())
	path := filepath.Join(t.TempDir(), "cache.db")

	found, err := m.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, found)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestMirror_PublishThenFetch(t *testing.T) {
	ctx := context.Background()
	api := &fakeS3{objects: map[string][]byte{}}
	m := s3mirror.NewWithAPI(api, "bucket", "snapshots/cache.db", quietLogger())
	dir := t.TempDir()

	src := filepath.Join(dir, "src.db")
	require.NoError(t, os.WriteFile(src, []byte(`{"k":1}`), 0o644))
	require.NoError(t, m.Publish(ctx, src))
	assert.Equal(t, []byte(`{"k":1}`), api.objects["bucket/snapshots/cache.db"])

	dst := filepath.Join(dir, "dst.db")
	found, err := m.Fetch(ctx, dst)
	require.NoError(t, err)
	assert.True(t, found)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, string(data))
}

func TestMirror_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("access denied")
	m := s3mirror.NewWithAPI(&fakeS3{getErr: boom}, "bucket", "cache.db", quietLogger())
	_, err := m.Fetch(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.ErrorIs(t, err, boom)
}

func TestMirror_InterruptedFetchLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	api := &fakeS3{
		objects: map[string][]byte{"bucket/cache.db": []byte(`{"k":"0x1","other":"0x2"}`)},
		bodyErr: errors.New("connection reset"),
	}
	m := s3mirror.NewWithAPI(api, "bucket", "cache.db", quietLogger())

	found, err := m.Fetch(context.Background(), path)
	require.Error(t, err)
	assert.False(t, found)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be cleaned up")

	require.NoError(t, os.WriteFile(path, []byte(`{"old":1}`), 0o644))
	_, err = m.Fetch(context.Background(), path)
	require.Error(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"old":1}`, string(data))
}

func TestNew_RequiresBucketAndKey(t *testing.T) {
	_, err := s3mirror.New(context.Background(), s3mirror.Config{Bucket: "b"}, quietLogger())
	require.Error(t, err)
}
