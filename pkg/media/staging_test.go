package media

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/gemini"
)

type fakeDownloader struct {
	failDownload bool
}

func (f *fakeDownloader) DownloadToFile(_ context.Context, _, path string) error {
	if f.failDownload {
		return errors.New("download failed")
	}
	return os.WriteFile(path, []byte("media bytes"), 0o600)
}

type fakeFileStore struct {
	failUpload   bool
	failDelete   bool
	deletedNames []string
}

func (f *fakeFileStore) UploadFile(_ context.Context, _, mimeType string) (*gemini.UploadedFile, error) {
	if f.failUpload {
		return nil, errors.New("upload failed")
	}
	return &gemini.UploadedFile{Name: "files/abc", URI: "https://files/abc", MIMEType: mimeType}, nil
}

func (f *fakeFileStore) DeleteFile(_ context.Context, name string) error {
	f.deletedNames = append(f.deletedNames, name)
	if f.failDelete {
		return errors.New("delete failed")
	}
	return nil
}

func TestStageAndRelease(t *testing.T) {
	store := &fakeFileStore{}
	stager := NewStager(&fakeDownloader{}, store)
	stager.tempDir = t.TempDir()

	staged, err := stager.Stage(context.Background(), "file-123", "ogg")
	require.NoError(t, err)
	require.NotNil(t, staged.Remote)
	assert.FileExists(t, staged.LocalPath)
	assert.Equal(t, "audio/ogg", staged.Remote.MIMEType)

	stager.Release(context.Background(), staged)

	assert.NoFileExists(t, staged.LocalPath)
	assert.Equal(t, []string{"files/abc"}, store.deletedNames)
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := &fakeFileStore{}
	stager := NewStager(&fakeDownloader{}, store)
	stager.tempDir = t.TempDir()

	staged, err := stager.Stage(context.Background(), "file-123", "mp4")
	require.NoError(t, err)

	stager.Release(context.Background(), staged)
	stager.Release(context.Background(), staged)

	assert.Len(t, store.deletedNames, 1)
}

func TestReleaseCleansLocalHalfWhenUploadFails(t *testing.T) {
	store := &fakeFileStore{failUpload: true}
	stager := NewStager(&fakeDownloader{}, store)
	stager.tempDir = t.TempDir()

	staged, err := stager.Stage(context.Background(), "file-123", "mp3")
	require.Error(t, err)
	require.NotNil(t, staged)
	assert.FileExists(t, staged.LocalPath)

	stager.Release(context.Background(), staged)

	assert.NoFileExists(t, staged.LocalPath)
	assert.Empty(t, store.deletedNames)
}

func TestReleaseAttemptsRemoteDeleteEvenIfLocalFileGone(t *testing.T) {
	store := &fakeFileStore{}
	stager := NewStager(&fakeDownloader{}, store)
	stager.tempDir = t.TempDir()

	staged, err := stager.Stage(context.Background(), "file-123", "ogg")
	require.NoError(t, err)
	require.NoError(t, os.Remove(staged.LocalPath))

	stager.Release(context.Background(), staged)

	assert.Equal(t, []string{"files/abc"}, store.deletedNames)
}

func TestReleaseNilIsNoOp(t *testing.T) {
	stager := NewStager(&fakeDownloader{}, &fakeFileStore{})

	stager.Release(context.Background(), nil)
}

func TestStageDownloadFailure(t *testing.T) {
	stager := NewStager(&fakeDownloader{failDownload: true}, &fakeFileStore{})
	stager.tempDir = t.TempDir()

	staged, err := stager.Stage(context.Background(), "file-123", "ogg")

	require.Error(t, err)
	assert.Nil(t, staged)
}
