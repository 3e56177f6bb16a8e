package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"meshy-ar-backend/internal/meshy"
	"meshy-ar-backend/internal/models"
)

// Provider is the remote reconstruction service.
type Provider interface {
	SubmitMultiImageTask(ctx context.Context, imageURLs []string) (*meshy.SubmitResult, error)
	GetTask(ctx context.Context, taskID string) (*meshy.Task, error)
	DownloadModelTo(ctx context.Context, downloadURL string, w io.Writer) error
}

// StatusStreamer relays live task status events.
type StatusStreamer interface {
	StreamTask(ctx context.Context, taskID string) (<-chan meshy.TaskEvent, error)
}

// VideoRepository reads and writes job state on video documents.
type VideoRepository interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	SetVideoJob(ctx context.Context, videoID, userID, taskID, status string, job map[string]interface{}) error
	// FindVideoIDByTaskID returns "" without error when no video
	// references the task; the source may have been deleted.
	FindVideoIDByTaskID(ctx context.Context, taskID string) (string, error)
}

// ModelRepository reads and writes generated-model metadata records.
type ModelRepository interface {
	CreateModel(ctx context.Context, model *models.GeneratedModel) (string, error)
	GetModel(ctx context.Context, modelID string) (*models.GeneratedModel, error)
	ListModels(ctx context.Context, userID, videoID string) ([]models.GeneratedModel, error)
	ListModelsForVideo(ctx context.Context, videoID string) ([]models.GeneratedModel, error)
	DeleteModel(ctx context.Context, modelID string) error
}

// ModelStore holds the model binaries.
type ModelStore interface {
	UploadModel(ctx context.Context, key string, data io.Reader) error
	PublicURL(key string) string
	RemoveModel(ctx context.Context, key string) error
}

// minImages is the fewest input photos the reconstruction accepts.
const minImages = 3

// ModelService drives a generation job from submission through polling to
// artifact retrieval, storage and metadata commit. Each method is a
// stateless sequence of remote calls; invocations for different tasks run
// concurrently without coordination.
type ModelService struct {
	provider Provider
	videos   VideoRepository
	records  ModelRepository
	store    ModelStore
	logger   *zap.Logger
}

func NewModelService(
	provider Provider,
	videos VideoRepository,
	records ModelRepository,
	store ModelStore,
	logger *zap.Logger,
) *ModelService {
	return &ModelService{
		provider: provider,
		videos:   videos,
		records:  records,
		store:    store,
		logger:   logger,
	}
}

type GenerateResult struct {
	TaskID string
	Raw    map[string]interface{}
}

type StatusResult struct {
	TaskID   string
	Status   string
	Progress int
	Raw      map[string]interface{}
}

type FetchResult struct {
	TaskID         string
	ModelPublicURL string
	DocID          string
	ThumbnailURL   string
}

// StorageKey derives the deterministic object name for a task's model
// binary. Re-fetching a task overwrites this key instead of duplicating.
func StorageKey(taskID string) string {
	return taskID + ".glb"
}

// Generate submits the video's model images as a new generation task and
// records the job on the video document. A video holds at most one active
// job; re-submission overwrites the previous job reference. The provider
// call is not retried here: resubmission counts against provider quota,
// so retrying is the caller's decision.
func (s *ModelService) Generate(ctx context.Context, videoID, userID string) (*GenerateResult, error) {
	if s.videos == nil {
		return nil, ErrStoreUnavailable
	}

	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if len(video.ModelImages) < minImages {
		return nil, fmt.Errorf("modelImages missing or fewer than %d images: %w", minImages, ErrInvalidInput)
	}

	s.logger.Info("submitting images to Meshy",
		zap.String("video_id", videoID),
		zap.Int("image_count", len(video.ModelImages)))

	result, err := s.provider.SubmitMultiImageTask(ctx, video.ModelImages)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	if err := s.videos.SetVideoJob(ctx, videoID, userID, result.TaskID, meshy.StatusProcessing, result.Raw); err != nil {
		return nil, fmt.Errorf("failed to persist job on video %s: %w", videoID, err)
	}

	s.logger.Info("meshy job created",
		zap.String("task_id", result.TaskID),
		zap.String("video_id", videoID))

	return &GenerateResult{TaskID: result.TaskID, Raw: result.Raw}, nil
}

// Status polls the provider for a task's current state. It is read-only:
// persisted job state changes only at submission and at fetch completion,
// so an interrupted poll can never leave drifted state behind.
func (s *ModelService) Status(ctx context.Context, taskID string) (*StatusResult, error) {
	task, err := s.provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	return &StatusResult{
		TaskID:   taskID,
		Status:   task.Status,
		Progress: task.Progress,
		Raw:      task.Raw,
	}, nil
}

// Fetch retrieves the finished model binary, stores it under the task's
// deterministic key and commits the metadata record. The metadata write
// happens strictly after the storage write: a download or upload failure
// aborts with nothing persisted, while a metadata failure after a
// successful upload leaves an orphaned storage object to be reconciled
// later. Safe to retry thanks to the upsert key.
func (s *ModelService) Fetch(ctx context.Context, taskID, userID string) (*FetchResult, error) {
	if s.records == nil {
		return nil, ErrStoreUnavailable
	}

	task, err := s.provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	if task.Status != meshy.StatusSucceeded {
		return nil, &NotReadyError{Status: task.Status}
	}

	if task.ModelURL == "" {
		return nil, ErrMissingAsset
	}

	tmp, err := os.CreateTemp("", "meshy-*.glb")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	s.logger.Info("downloading model binary", zap.String("task_id", taskID))
	if err := s.provider.DownloadModelTo(ctx, task.ModelURL, tmp); err != nil {
		return nil, &ProviderError{Err: err}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}

	key := StorageKey(taskID)
	if err := s.store.UploadModel(ctx, key, tmp); err != nil {
		return nil, &StorageError{Err: err}
	}
	publicURL := s.store.PublicURL(key)

	// Reverse lookup of the originating video. Zero matches is fine (the
	// video may have been deleted since submission); a lookup failure is
	// also tolerated rather than discarding a stored model over it.
	var videoID string
	if s.videos != nil {
		videoID, err = s.videos.FindVideoIDByTaskID(ctx, taskID)
		if err != nil {
			s.logger.Warn("video reverse lookup failed",
				zap.String("task_id", taskID), zap.Error(err))
			videoID = ""
		}
	}

	record := &models.GeneratedModel{
		UserID:       userID,
		VideoID:      videoID,
		TaskID:       taskID,
		ModelFileURL: publicURL,
		Source:       "meshy",
		Status:       models.ModelStatusReady,
		ThumbnailURL: task.ThumbnailURL,
		VideoURL:     task.VideoURL,
	}

	docID, err := s.records.CreateModel(ctx, record)
	if err != nil {
		s.logger.Warn("model record write failed after storage upload, object orphaned",
			zap.String("task_id", taskID), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to save model record: %w", err)
	}

	s.logger.Info("model stored",
		zap.String("task_id", taskID),
		zap.String("doc_id", docID),
		zap.String("url", publicURL))

	return &FetchResult{
		TaskID:         taskID,
		ModelPublicURL: publicURL,
		DocID:          docID,
		ThumbnailURL:   task.ThumbnailURL,
	}, nil
}

// List returns ready models, optionally filtered by user and/or video,
// newest first.
func (s *ModelService) List(ctx context.Context, userID, videoID string) ([]models.GeneratedModel, error) {
	if s.records == nil {
		return nil, ErrStoreUnavailable
	}
	return s.records.ListModels(ctx, userID, videoID)
}

// ListForVideo returns the ready models generated from one video.
func (s *ModelService) ListForVideo(ctx context.Context, videoID string) ([]models.GeneratedModel, error) {
	if s.records == nil {
		return nil, ErrStoreUnavailable
	}
	return s.records.ListModelsForVideo(ctx, videoID)
}

// Delete removes a model's storage object and metadata record. Storage
// cleanup is best-effort: a missing or unreachable object must not block
// the metadata deletion. This is deliberately the inverse of Fetch, where
// storage has to succeed before metadata is written.
func (s *ModelService) Delete(ctx context.Context, modelID string) error {
	if s.records == nil {
		return ErrStoreUnavailable
	}

	record, err := s.records.GetModel(ctx, modelID)
	if err != nil {
		return err
	}

	if record.TaskID != "" {
		key := StorageKey(record.TaskID)
		if err := s.store.RemoveModel(ctx, key); err != nil {
			s.logger.Warn("could not delete model from storage",
				zap.String("model_id", modelID), zap.String("key", key), zap.Error(err))
		}
	}

	if err := s.records.DeleteModel(ctx, modelID); err != nil {
		return fmt.Errorf("failed to delete model record: %w", err)
	}

	s.logger.Info("model deleted", zap.String("model_id", modelID))
	return nil
}
