package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gemini-image/common"
	"gemini-image/internal/genai/gemini"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockGenerator struct {
	called  bool
	lastReq gemini.ImageRequest
	result  *gemini.ImageResult
	err     error
}

func (m *mockGenerator) GenerateImage(ctx context.Context, req gemini.ImageRequest) (*gemini.ImageResult, error) {
	m.called = true
	m.lastReq = req
	return m.result, m.err
}

type mockUploader struct {
	bucket string
	key    string
	data   []byte
	err    error
}

func (m *mockUploader) UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	data, _ := io.ReadAll(reader)
	m.bucket, m.key, m.data = bucket, key, data
	return bucket + "/" + key, m.err
}

func (m *mockUploader) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	path, err := m.UploadFile(ctx, bucket, key, reader, contentType)
	if err != nil {
		return "", err
	}
	return "https://cdn.test/" + path, nil
}

// --- Tests ---

func TestImageService_Generate(t *testing.T) {
	dir := t.TempDir()
	gen := &mockGenerator{result: &gemini.ImageResult{Data: []byte("png-bytes"), MIMEType: "image/png"}}
	svc := NewImageService(gen, nil, "")

	output := filepath.Join(dir, "out", "fox.png")
	outcome, err := svc.Generate(context.Background(), Job{
		Prompt:      "a red fox",
		Model:       "gemini-3-pro-image-preview",
		Size:        "4k",
		AspectRatio: "16:9",
		Output:      output,
	})
	require.NoError(t, err)

	assert.Equal(t, output, outcome.OutputPath)
	assert.Equal(t, "image/png", outcome.MIMEType)
	assert.Equal(t, len("png-bytes"), outcome.Size)
	assert.Empty(t, outcome.UploadURL)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	assert.Equal(t, "a red fox", gen.lastReq.Prompt)
	assert.Equal(t, "4k", gen.lastReq.ImageSize)
	assert.Equal(t, "16:9", gen.lastReq.AspectRatio)
	assert.Nil(t, gen.lastReq.InputImage)
}

func TestImageService_DefaultOutputPath(t *testing.T) {
	t.Chdir(t.TempDir())
	gen := &mockGenerator{result: &gemini.ImageResult{Data: []byte{1, 2}, MIMEType: "image/png"}}
	svc := NewImageService(gen, nil, "")
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) }

	outcome, err := svc.Generate(context.Background(), Job{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "generated-20260102-030405.png", outcome.OutputPath)
	assert.FileExists(t, outcome.OutputPath)
}

func TestImageService_InputImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.gif")
	require.NoError(t, os.WriteFile(input, []byte("GIF89a...."), 0644))

	gen := &mockGenerator{result: &gemini.ImageResult{Data: []byte("x"), MIMEType: "image/png"}}
	svc := NewImageService(gen, nil, "")

	_, err := svc.Generate(context.Background(), Job{Prompt: "p", InputImagePath: input, Output: filepath.Join(dir, "o.png")})
	require.NoError(t, err)
	require.NotNil(t, gen.lastReq.InputImage)
	assert.Equal(t, "image/gif", gen.lastReq.InputImage.MIMEType)
}

func TestImageService_NoFileOnError(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.png")

	t.Run("invalid input image skips the remote call", func(t *testing.T) {
		input := filepath.Join(dir, "fake.png")
		require.NoError(t, os.WriteFile(input, []byte("not an image"), 0644))
		gen := &mockGenerator{}

		_, err := NewImageService(gen, nil, "").Generate(context.Background(), Job{Prompt: "p", InputImagePath: input, Output: output})
		var vErr *common.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.False(t, gen.called)
		assert.NoFileExists(t, output)
	})

	t.Run("generator errors", func(t *testing.T) {
		for _, genErr := range []error{
			gemini.ErrNoCandidates,
			&gemini.RefusalError{Text: "no"},
			&gemini.APIError{StatusCode: 500, Body: "boom"},
		} {
			gen := &mockGenerator{err: genErr}
			_, err := NewImageService(gen, nil, "").Generate(context.Background(), Job{Prompt: "p", Output: output})
			assert.ErrorIs(t, err, genErr)
			assert.NoFileExists(t, output)
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		_, err := NewImageService(&mockGenerator{}, nil, "").Generate(context.Background(), Job{Output: output})
		assert.ErrorIs(t, err, common.ErrMissingPrompt)
	})
}

func TestImageService_Upload(t *testing.T) {
	dir := t.TempDir()
	gen := &mockGenerator{result: &gemini.ImageResult{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}}

	t.Run("uploads after writing", func(t *testing.T) {
		uploader := &mockUploader{}
		svc := NewImageService(gen, uploader, "my-bucket")

		outcome, err := svc.Generate(context.Background(), Job{Prompt: "p", Output: filepath.Join(dir, "a.jpg"), Upload: true})
		require.NoError(t, err)

		assert.Equal(t, "my-bucket", uploader.bucket)
		assert.Regexp(t, `^images/\d{4}-\d{2}-\d{2}/.+\.jpg$`, uploader.key)
		assert.True(t, bytes.Equal([]byte("jpeg-bytes"), uploader.data))
		assert.Equal(t, "https://cdn.test/my-bucket/"+uploader.key, outcome.UploadURL)
	})

	t.Run("upload requested without uploader", func(t *testing.T) {
		output := filepath.Join(dir, "b.jpg")
		_, err := NewImageService(gen, nil, "").Generate(context.Background(), Job{Prompt: "p", Output: output, Upload: true})
		require.Error(t, err)
		assert.NoFileExists(t, output)
	})

	t.Run("upload failure keeps the local file", func(t *testing.T) {
		output := filepath.Join(dir, "c.jpg")
		svc := NewImageService(gen, &mockUploader{err: errors.New("denied")}, "b")

		outcome, err := svc.Generate(context.Background(), Job{Prompt: "p", Output: output, Upload: true})
		require.Error(t, err)
		require.NotNil(t, outcome)
		assert.FileExists(t, output)
	})
}
