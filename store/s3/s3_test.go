package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
)

// fakeS3 keeps objects in memory. Only single-part uploads are supported,
// which is all a snapshot ever needs.
type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart upload not supported")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewWithClient(fake, "ledgers", "taxlots/")

	_, err := s.Load(ctx, "2018")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	snap := lots.Snapshot{"ETH": {{Quantity: decimal.RequireFromString("0.5"), Price: decimal.RequireFromString("1200")}}}
	assert.NoError(t, s.Save(ctx, "2018", snap))

	assert.Equal(t, "application/json", fake.types["ledgers/taxlots/2018.json"])
	assert.Contains(t, string(fake.objects["ledgers/taxlots/2018.json"]), `"quantity": "0.5"`)

	loaded, err := s.Load(ctx, "2018")
	assert.NoError(t, err)
	assert.Equal(t, "0.5", loaded.Total("ETH").String())
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "http://r2.example.com", normaliseEndpoint("http://r2.example.com", true))
	assert.Equal(t, "https://localhost:9000", normaliseEndpoint("localhost:9000", true))
	assert.Equal(t, "http://127.0.0.1:9000", normaliseEndpoint("127.0.0.1:9000", false))
	assert.Equal(t, "https://s3.local", normaliseEndpoint("s3.local", true))
	assert.Equal(t, "https://r2.example.com/bucket", normaliseEndpoint("https://r2.example.com/bucket", false))
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.Error(t, err)
}
