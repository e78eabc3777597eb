package cloudwriter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key string
	body        []byte
	puts        int
	err         error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Writer_UploadsOnClose(t *testing.T) {
	client := &fakeS3{}
	w, err := NewS3WriterFactoryWithClient(client).NewWriter(context.Background(), "bucket", "summaries/a.parquet")
	require.NoError(t, err)

	_, err = w.Write([]byte("PAR1"))
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 0, client.puts)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, client.puts)
	assert.Equal(t, "bucket", client.bucket)
	assert.Equal(t, "summaries/a.parquet", client.key)
	assert.Equal(t, "PAR1data", string(client.body))

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestS3Writer_Errors(t *testing.T) {
	_, err := NewS3WriterFactoryWithClient(&fakeS3{}).NewWriter(context.Background(), "", "x")
	assert.Error(t, err)

	client := &fakeS3{err: errors.New("access denied")}
	w, err := NewS3WriterFactoryWithClient(client).NewWriter(context.Background(), "bucket", "x")
	require.NoError(t, err)
	assert.ErrorContains(t, w.Close(), "access denied")
}
