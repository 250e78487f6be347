package service

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/common"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPosterSize is the largest accepted poster image.
const MaxPosterSize int64 = 500 * 1024

// PosterUpload is one poster image received from a client.
type PosterUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type PosterService struct {
	*Deps
	events *EventService
}

func NewPosterService(deps *Deps) *PosterService {
	return &PosterService{Deps: deps, events: NewEventService(deps)}
}

// Upload stores the poster row and then the image. When the image cannot be
// stored the row is removed again and an ExternalServiceError is returned.
func (s *PosterService) Upload(ctx context.Context, actor *permission.Actor, eventId uuid.UUID, up *PosterUpload) (*entity.PosterView, error) {
	if err := enter(permission.PosterUpload, actor, "upload poster"); err != nil {
		return nil, err
	}
	if err := validatePoster(up); err != nil {
		return nil, err
	}
	e, err := s.events.find(ctx, eventId)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.PosterUpload, actor, "upload poster", e); err != nil {
		return nil, err
	}
	if s.Storage == nil {
		return nil, &ExternalServiceError{Service: "object storage", Err: common.NewError("not configured")}
	}

	p := &model.EventPoster{
		Id:          uuid.New(),
		EventId:     e.Id,
		ContentType: up.ContentType,
		Size:        up.Size,
	}
	p.ImageKey = posterKey(p.Id, up.Filename)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(p).Error
	})
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout())
	defer cancel()
	if err := s.Storage.Put(storeCtx, p.ImageKey, up.Body, up.Size, up.ContentType); err != nil {
		logger.Errorf("Upload of poster %s for event %s by %s failed: %v", p.ImageKey, e.Id, actorName(actor), err)
		if cerr := s.transaction(context.WithoutCancel(ctx), func(tx *gorm.DB) error {
			return tx.Delete(&model.EventPoster{}, "id = ?", p.Id).Error
		}); cerr != nil {
			logger.Errorf("Failed to remove poster row %s after failed upload: %v", p.Id, cerr)
		}
		return nil, &ExternalServiceError{Service: "object storage", Err: err}
	}

	logger.Infof("Poster %s (%s) uploaded for event %s", p.ImageKey, common.FormatSize(up.Size), e.Id)
	return &entity.PosterView{Id: p.Id, Event: p.EventId, Image: p.ImageKey}, nil
}

// List returns a presigned URL per poster. Posters whose URL cannot be signed are skipped.
func (s *PosterService) List(ctx context.Context, actor *permission.Actor, eventId uuid.UUID) ([]entity.PosterURL, error) {
	if err := enter(permission.Authenticated, actor, "list posters"); err != nil {
		return nil, err
	}
	e, err := s.events.find(ctx, eventId)
	if err != nil {
		return nil, err
	}

	db, cancel := s.withDB(ctx)
	defer cancel()
	var posters []model.EventPoster
	if err := db.Where("event_id = ?", e.Id).Order("uploaded_at").Find(&posters).Error; err != nil {
		return nil, err
	}

	urls := make([]entity.PosterURL, 0, len(posters))
	if s.Storage == nil {
		logger.Warning("Object storage is not configured, no poster URLs for event ", e.Id)
		return urls, nil
	}
	for _, p := range posters {
		signCtx, cancel := context.WithTimeout(ctx, s.storageTimeout())
		url, err := s.Storage.PresignedURL(signCtx, p.ImageKey, s.PresignExpiry)
		cancel()
		if err != nil {
			logger.Warningf("Skipping poster %s: presign failed: %v", p.Id, err)
			continue
		}
		urls = append(urls, entity.PosterURL{Id: p.Id, Url: url})
	}
	return urls, nil
}

func validatePoster(up *PosterUpload) error {
	if up == nil || up.Body == nil {
		return NewValidationError("image", "No file was submitted.")
	}
	if up.Size > MaxPosterSize {
		return NewValidationError("image", "Image size cannot exceed 500 kB.")
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return NewValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return nil
}

func posterKey(id uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "posters/" + id.String() + ext
}

// removeBlobs deletes stored images of deleted posters. Failures leave
// orphaned objects and are only logged.
func removeBlobs(ctx context.Context, d *Deps, keys []string) {
	if d.Storage == nil || len(keys) == 0 {
		return
	}
	for _, key := range keys {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.storageTimeout())
		if err := d.Storage.Delete(delCtx, key); err != nil {
			logger.Warningf("Failed to delete poster object %s: %v", key, err)
		}
		cancel()
	}
}
