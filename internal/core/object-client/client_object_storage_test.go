package objectclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// memS3 keeps objects in memory and records the bucket of every call.
type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	buckets []string
	getErr  error
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = append(m.buckets, aws.ToString(in.Bucket))
	m.objects[aws.ToString(in.Key)] = data
	m.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets = append(m.buckets, aws.ToString(in.Bucket))
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3Client(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round trip objects in the bound bucket", func(t *testing.T) {
		mem := newMemS3()
		c := newS3Client(mem, "us-east-2", "docs")

		require.NoError(t, c.PutObject(ctx, "hr/manifest.json", []byte(`[]`), "application/json"))
		got, err := c.GetObject(ctx, "hr/manifest.json")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), got)
		assert.Equal(t, "application/json", mem.types["hr/manifest.json"])
		for _, b := range mem.buckets {
			assert.Equal(t, "docs", b)
		}
	})

	t.Run("Should stream uploads and return the object url", func(t *testing.T) {
		mem := newMemS3()
		c := newS3Client(mem, "us-east-2", "docs")

		url, err := c.UploadFile(ctx, "hr/1/a.pdf", bytes.NewReader([]byte("%PDF-1.7")), "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://docs.s3.us-east-2.amazonaws.com/hr/1/a.pdf", url)
		assert.Equal(t, []byte("%PDF-1.7"), mem.objects["hr/1/a.pdf"])
	})

	t.Run("Should map missing keys to ErrObjectNotFound", func(t *testing.T) {
		c := newS3Client(newMemS3(), "us-east-2", "docs")
		_, err := c.GetObject(ctx, "nope")
		assert.ErrorIs(t, err, core.ErrObjectNotFound)
	})

	t.Run("Should map generic NotFound api errors", func(t *testing.T) {
		mem := newMemS3()
		mem.getErr = &smithy.GenericAPIError{Code: "NotFound", Message: "gone"}
		_, err := newS3Client(mem, "us-east-2", "docs").GetObject(ctx, "x")
		assert.ErrorIs(t, err, core.ErrObjectNotFound)
	})

	t.Run("Should pass other errors through", func(t *testing.T) {
		mem := newMemS3()
		mem.getErr = &smithy.GenericAPIError{Code: "SlowDown", Message: "throttled"}
		_, err := newS3Client(mem, "us-east-2", "docs").GetObject(ctx, "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrObjectNotFound)
	})

	t.Run("Should delete objects", func(t *testing.T) {
		mem := newMemS3()
		c := newS3Client(mem, "us-east-2", "docs")
		require.NoError(t, c.PutObject(ctx, "k", []byte("v"), "text/plain"))
		require.NoError(t, c.DeleteObject(ctx, "k"))
		_, err := c.GetObject(ctx, "k")
		assert.ErrorIs(t, err, core.ErrObjectNotFound)
	})
}
