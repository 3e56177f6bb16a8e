package firestore

import (
	"context"
	"fmt"
	"os"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
)

const (
	videosCollection = "videos"
	modelsCollection = "generated_models_files"
)

// Client wraps the Firestore SDK with the queries this service needs on
// the videos and generated_models_files collections.
type Client struct {
	client *fs.Client
}

// New connects to Firestore. When credentialsPath points at an existing
// service-account file it is used; otherwise Application Default
// Credentials apply. An empty projectID is resolved from the credentials.
func New(ctx context.Context, projectID, credentialsPath string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		if _, err := os.Stat(credentialsPath); err == nil {
			opts = append(opts, option.WithCredentialsFile(credentialsPath))
		}
	}

	if projectID == "" {
		projectID = fs.DetectProjectID
	}

	client, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	snap, err := c.client.Collection(videosCollection).Doc(videoID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("video %s: %w", videoID, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, err)
	}

	var video models.Video
	if err := snap.DataTo(&video); err != nil {
		return nil, fmt.Errorf("failed to decode video %s: %w", videoID, err)
	}
	video.ID = snap.Ref.ID

	return &video, nil
}

// SetVideoJob overwrites the video's job reference fields. A video tracks
// at most one job; the previous reference is replaced, not versioned.
func (c *Client) SetVideoJob(ctx context.Context, videoID, userID, taskID, jobStatus string, job map[string]interface{}) error {
	_, err := c.client.Collection(videosCollection).Doc(videoID).Update(ctx, []fs.Update{
		{Path: "meshyJob", Value: job},
		{Path: "meshyTaskId", Value: taskID},
		{Path: "meshyStatus", Value: jobStatus},
		{Path: "meshyRequestedAt", Value: fs.ServerTimestamp},
		{Path: "userId", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", videoID, err)
	}
	return nil
}

func (c *Client) FindVideoIDByTaskID(ctx context.Context, taskID string) (string, error) {
	iter := c.client.Collection(videosCollection).
		Where("meshyTaskId", "==", taskID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query videos by task %s: %w", taskID, err)
	}

	return snap.Ref.ID, nil
}

func (c *Client) CreateModel(ctx context.Context, model *models.GeneratedModel) (string, error) {
	// videoId is stored as null when the originating video is gone
	var videoID interface{}
	if model.VideoID != "" {
		videoID = model.VideoID
	}

	doc := map[string]interface{}{
		"userId":       model.UserID,
		"videoId":      videoID,
		"taskId":       model.TaskID,
		"modelFileUrl": model.ModelFileURL,
		"source":       model.Source,
		"status":       model.Status,
		"thumbnailUrl": model.ThumbnailURL,
		"videoUrl":     model.VideoURL,
		"createdAt":    fs.ServerTimestamp,
		"updatedAt":    fs.ServerTimestamp,
	}

	ref, _, err := c.client.Collection(modelsCollection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create model record: %w", err)
	}

	return ref.ID, nil
}

func (c *Client) GetModel(ctx context.Context, modelID string) (*models.GeneratedModel, error) {
	snap, err := c.client.Collection(modelsCollection).Doc(modelID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("model %s: %w", modelID, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", modelID, err)
	}

	return modelFromSnapshot(snap)
}

func (c *Client) ListModels(ctx context.Context, userID, videoID string) ([]models.GeneratedModel, error) {
	query := c.client.Collection(modelsCollection).Query
	if userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if videoID != "" {
		query = query.Where("videoId", "==", videoID)
	}
	query = query.
		Where("status", "==", models.ModelStatusReady).
		OrderBy("createdAt", fs.Desc)

	return c.collectModels(query.Documents(ctx))
}

func (c *Client) ListModelsForVideo(ctx context.Context, videoID string) ([]models.GeneratedModel, error) {
	query := c.client.Collection(modelsCollection).
		Where("videoId", "==", videoID).
		Where("status", "==", models.ModelStatusReady)

	return c.collectModels(query.Documents(ctx))
}

func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	_, err := c.client.Collection(modelsCollection).Doc(modelID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", modelID, err)
	}
	return nil
}

func (c *Client) collectModels(iter *fs.DocumentIterator) ([]models.GeneratedModel, error) {
	defer iter.Stop()

	records := make([]models.GeneratedModel, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}

		record, err := modelFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, nil
}

func modelFromSnapshot(snap *fs.DocumentSnapshot) (*models.GeneratedModel, error) {
	var record models.GeneratedModel
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", snap.Ref.ID, err)
	}
	record.ID = snap.Ref.ID
	return &record, nil
}
