package service

import (
	"context"
	"path"
	"strings"
	"sync/atomic"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"
	"slide-capture/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ImageUploader runs at most one normalization at a time for one image
// interaction. A second upload while one is in flight is rejected rather
// than queued.
type ImageUploader struct {
	normalizer Normalizer
	store      domain.ImageStore
	gate       *semaphore.Weighted
	inFlight   atomic.Bool
}

// NewImageUploader creates an uploader. store may be nil, in which case
// images only travel inline in the response.
func NewImageUploader(normalizer Normalizer, store domain.ImageStore) *ImageUploader {
	return &ImageUploader{
		normalizer: normalizer,
		store:      store,
		gate:       semaphore.NewWeighted(1),
	}
}

// InProgress lets callers disable re-entrant triggers.
func (u *ImageUploader) InProgress() bool {
	return u.inFlight.Load()
}

// Upload normalizes the file and archives it when a store is configured.
// Archival failures are logged; the inline image is still returned.
func (u *ImageUploader) Upload(ctx context.Context, interactionID string, upload *domain.ImageUpload) (domain.ImageAnswer, error) {
	if !u.gate.TryAcquire(1) {
		logger.Get().Info("Uploader: upload rejected, another is in progress", zap.String("interaction_id", interactionID))
		return domain.ImageAnswer{}, domain.NewUploadInProgressError(interactionID)
	}
	u.inFlight.Store(true)
	defer func() {
		u.inFlight.Store(false)
		u.gate.Release(1)
	}()

	normalized, err := u.normalizer.Normalize(ctx, upload)
	if err != nil {
		return domain.ImageAnswer{}, err
	}
	answer := normalized.Answer()

	if u.store != nil {
		key := ImageObjectKey(interactionID, normalized.MimeType)
		if _, err := u.store.Put(ctx, key, normalized.Data, normalized.MimeType); err != nil {
			logger.Get().Warn("Uploader: failed to archive image",
				zap.String("interaction_id", interactionID),
				zap.String("object_key", key),
				zap.Error(err),
			)
		} else {
			answer.ObjectKey = key
		}
	}
	return answer, nil
}

// ImageObjectKey builds "<interaction>/<ulid>.<ext>".
func ImageObjectKey(interactionID, mimeType string) string {
	ext := strings.TrimPrefix(mimeType, "image/")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join(interactionID, util.NewULID()+"."+ext)
}
