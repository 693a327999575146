package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/gemini"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

type FileDownloader interface {
	DownloadToFile(ctx context.Context, fileID, path string) error
}

type FileStore interface {
	UploadFile(ctx context.Context, path, mimeType string) (*gemini.UploadedFile, error)
	DeleteFile(ctx context.Context, name string) error
}

// StagedMedia is one inbound file present in two places at once: transient
// local storage and the AI backend's file-inference store. Both halves must
// be released before the handler invocation completes.
type StagedMedia struct {
	LocalPath string
	Remote    *gemini.UploadedFile

	released bool
}

type Stager struct {
	downloader FileDownloader
	store      FileStore
	tempDir    string
}

func NewStager(downloader FileDownloader, store FileStore) *Stager {
	return &Stager{
		downloader: downloader,
		store:      store,
		tempDir:    os.TempDir(),
	}
}

// Stage downloads the platform file to transient local storage, namespaced
// by file identifier so concurrent staging of different files cannot
// collide, then uploads it to the file-inference store.
func (s *Stager) Stage(ctx context.Context, fileID, ext string) (*StagedMedia, error) {
	localPath := filepath.Join(s.tempDir, fmt.Sprintf("%s.%s", fileID, ext))

	if err := s.downloader.DownloadToFile(ctx, fileID, localPath); err != nil {
		return nil, fmt.Errorf("downloading media file: %w", err)
	}

	staged := &StagedMedia{LocalPath: localPath}

	remote, err := s.store.UploadFile(ctx, localPath, mimeTypeForExt(ext))
	if err != nil {
		// The local half exists already; let the caller's deferred Release
		// clean it up.
		return staged, fmt.Errorf("uploading media file: %w", err)
	}
	staged.Remote = remote

	return staged, nil
}

// Release deletes both halves of the staged media. It is idempotent,
// nil-safe, and best-effort: the local and remote deletions are attempted
// independently, failures are logged and never propagated so cleanup can't
// mask the handler's own result.
func (s *Stager) Release(ctx context.Context, staged *StagedMedia) {
	if staged == nil || staged.released {
		return
	}
	staged.released = true

	var errs error

	if err := os.Remove(staged.LocalPath); err != nil && !os.IsNotExist(err) {
		errs = multierror.Append(errs, fmt.Errorf("removing local file %q: %w", staged.LocalPath, err))
	}

	if staged.Remote != nil {
		if err := s.store.DeleteFile(ctx, staged.Remote.Name); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if errs != nil {
		slog.Warn("releasing staged media", logger.Err(errs))
	}
}

func mimeTypeForExt(ext string) string {
	switch ext {
	case "ogg", "oga":
		return "audio/ogg"
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/mp4"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
