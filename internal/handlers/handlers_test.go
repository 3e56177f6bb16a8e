package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/handlers"
	"meshy-ar-backend/internal/meshy"
	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	submitResult *meshy.SubmitResult
	submitErr    error
	task         *meshy.Task
	taskErr      error
	downloadData []byte
	downloadErr  error
}

func (s *stubProvider) SubmitMultiImageTask(ctx context.Context, imageURLs []string) (*meshy.SubmitResult, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.submitResult, nil
}

func (s *stubProvider) GetTask(ctx context.Context, taskID string) (*meshy.Task, error) {
	if s.taskErr != nil {
		return nil, s.taskErr
	}
	return s.task, nil
}

func (s *stubProvider) DownloadModelTo(ctx context.Context, downloadURL string, w io.Writer) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	_, err := w.Write(s.downloadData)
	return err
}

type stubVideos struct {
	videos  map[string]*models.Video
	videoID string
}

func (s *stubVideos) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	video, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, services.ErrNotFound)
	}
	return video, nil
}

func (s *stubVideos) SetVideoJob(ctx context.Context, videoID, userID, taskID, status string, job map[string]interface{}) error {
	return nil
}

func (s *stubVideos) FindVideoIDByTaskID(ctx context.Context, taskID string) (string, error) {
	return s.videoID, nil
}

type stubRecords struct {
	records map[string]*models.GeneratedModel
	listed  []models.GeneratedModel
}

func (s *stubRecords) CreateModel(ctx context.Context, model *models.GeneratedModel) (string, error) {
	return "doc-1", nil
}

func (s *stubRecords) GetModel(ctx context.Context, modelID string) (*models.GeneratedModel, error) {
	record, ok := s.records[modelID]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", modelID, services.ErrNotFound)
	}
	return record, nil
}

func (s *stubRecords) ListModels(ctx context.Context, userID, videoID string) ([]models.GeneratedModel, error) {
	return s.listed, nil
}

func (s *stubRecords) ListModelsForVideo(ctx context.Context, videoID string) ([]models.GeneratedModel, error) {
	return s.listed, nil
}

func (s *stubRecords) DeleteModel(ctx context.Context, modelID string) error {
	return nil
}

type stubStore struct{}

func (s *stubStore) UploadModel(ctx context.Context, key string, data io.Reader) error {
	_, err := io.Copy(io.Discard, data)
	return err
}

func (s *stubStore) PublicURL(key string) string {
	return "https://storage.test/models/" + key
}

func (s *stubStore) RemoveModel(ctx context.Context, key string) error {
	return nil
}

type routerDeps struct {
	provider *stubProvider
	videos   *stubVideos
	records  *stubRecords
}

func newRouter(deps routerDeps) *gin.Engine {
	logger := zap.NewNop()

	var videos services.VideoRepository
	if deps.videos != nil {
		videos = deps.videos
	}
	var records services.ModelRepository
	if deps.records != nil {
		records = deps.records
	}

	svc := services.NewModelService(deps.provider, videos, records, &stubStore{}, logger)

	generate := handlers.NewGenerateHandler(svc, logger)
	status := handlers.NewStatusHandler(svc, logger)
	fetch := handlers.NewFetchHandler(svc, logger)
	list := handlers.NewModelsHandler(svc, logger)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/health", handlers.HealthHandler)
	api.POST("/generate-3d", generate.Generate)
	api.GET("/model-status/:task_id", status.GetStatus)
	api.POST("/fetch-model", fetch.Fetch)
	api.GET("/models/list", list.List)
	api.GET("/models/video/:video_id", list.ListForVideo)
	api.DELETE("/delete-model/:model_id", list.Delete)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Endpoint not found"})
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"Meshy AR Backend"}`, w.Body.String())
}

func TestGenerate_MissingVideoID(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"user_id": "user-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "video_id is required", decodeError(t, w))
}

func TestGenerate_VideoNotFound(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{videos: map[string]*models.Video{}}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"video_id": "missing"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No video found for ID: missing", decodeError(t, w))
}

func TestGenerate_TooFewImages(t *testing.T) {
	videos := &stubVideos{videos: map[string]*models.Video{
		"video-1": {ID: "video-1", ModelImages: []string{"a.jpg"}},
	}}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: videos, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"video_id": "video-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "modelImages missing or less than 3 images required", decodeError(t, w))
}

func TestGenerate_FirestoreUnavailable(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"video_id": "video-1"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Firestore not initialized - check server logs", decodeError(t, w))
}

func TestGenerate_ProviderError(t *testing.T) {
	videos := &stubVideos{videos: map[string]*models.Video{
		"video-1": {ID: "video-1", ModelImages: []string{"a.jpg", "b.jpg", "c.jpg"}},
	}}
	provider := &stubProvider{submitErr: errors.New("402 payment required")}
	router := newRouter(routerDeps{provider: provider, videos: videos, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"video_id": "video-1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), "Meshy API error:")
}

func TestGenerate_Success(t *testing.T) {
	videos := &stubVideos{videos: map[string]*models.Video{
		"video-1": {ID: "video-1", ModelImages: []string{"a.jpg", "b.jpg", "c.jpg"}},
	}}
	provider := &stubProvider{submitResult: &meshy.SubmitResult{
		TaskID: "task-1",
		Raw:    map[string]interface{}{"result": "task-1"},
	}}
	router := newRouter(routerDeps{provider: provider, videos: videos, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/generate-3d", map[string]string{"video_id": "video-1", "user_id": "user-1"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "3D model generation started", resp.Message)
}

func TestStatus_Success(t *testing.T) {
	provider := &stubProvider{task: &meshy.Task{
		Status:   meshy.StatusProcessing,
		Progress: 42,
		Raw:      map[string]interface{}{"status": "IN_PROGRESS", "progress": float64(42)},
	}}
	router := newRouter(routerDeps{provider: provider, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodGet, "/api/model-status/task-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, 42, resp.Progress)
	assert.Equal(t, "IN_PROGRESS", resp.ModelInfo["status"])
}

func TestStatus_ProviderError(t *testing.T) {
	provider := &stubProvider{taskErr: errors.New("connection refused")}
	router := newRouter(routerDeps{provider: provider, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodGet, "/api/model-status/task-1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), "Failed to check status:")
}

func TestFetch_MissingFields(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/fetch-model", map[string]string{"task_id": "task-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "task_id and user_id are required", decodeError(t, w))
}

func TestFetch_NotReady(t *testing.T) {
	provider := &stubProvider{task: &meshy.Task{Status: meshy.StatusPending}}
	router := newRouter(routerDeps{provider: provider, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/fetch-model", map[string]string{"task_id": "task-1", "user_id": "user-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Model not ready yet: pending", decodeError(t, w))
}

func TestFetch_NoModelURL(t *testing.T) {
	provider := &stubProvider{task: &meshy.Task{Status: meshy.StatusSucceeded}}
	router := newRouter(routerDeps{provider: provider, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/fetch-model", map[string]string{"task_id": "task-1", "user_id": "user-1"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No model URL found in Meshy response", decodeError(t, w))
}

func TestFetch_DownloadError(t *testing.T) {
	provider := &stubProvider{
		task:        &meshy.Task{Status: meshy.StatusSucceeded, ModelURL: "https://x/a.glb"},
		downloadErr: errors.New("connection reset"),
	}
	router := newRouter(routerDeps{provider: provider, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/fetch-model", map[string]string{"task_id": "task-1", "user_id": "user-1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), "Network error:")
}

func TestFetch_Success(t *testing.T) {
	provider := &stubProvider{
		task: &meshy.Task{
			Status:       meshy.StatusSucceeded,
			ModelURL:     "https://x/a.glb",
			ThumbnailURL: "https://x/a.png",
		},
		downloadData: []byte("binary-model"),
	}
	videos := &stubVideos{videoID: "video-1"}
	router := newRouter(routerDeps{provider: provider, videos: videos, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodPost, "/api/fetch-model", map[string]string{"task_id": "task-1", "user_id": "user-1"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.FetchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "https://storage.test/models/task-1.glb", resp.ModelPublicURL)
	assert.Equal(t, "doc-1", resp.FirestoreDocID)
	assert.Equal(t, "https://x/a.png", resp.ThumbnailURL)
}

func TestList_Success(t *testing.T) {
	records := &stubRecords{listed: []models.GeneratedModel{
		{ID: "doc-1", TaskID: "task-1", Status: models.ModelStatusReady},
		{ID: "doc-2", TaskID: "task-2", Status: models.ModelStatusReady},
	}}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: records})

	w := doJSON(t, router, http.MethodGet, "/api/models/list?user_id=user-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ModelListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Models, 2)
}

func TestList_EmptyIsArray(t *testing.T) {
	records := &stubRecords{listed: make([]models.GeneratedModel, 0)}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: records})

	w := doJSON(t, router, http.MethodGet, "/api/models/list", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"models":[]`)
}

func TestListForVideo_Success(t *testing.T) {
	records := &stubRecords{listed: []models.GeneratedModel{
		{ID: "doc-1", VideoID: "video-1", Status: models.ModelStatusReady},
	}}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: records})

	w := doJSON(t, router, http.MethodGet, "/api/models/video/video-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.VideoModelsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "video-1", resp.VideoID)
	assert.Equal(t, 1, resp.Count)
}

func TestDelete_NotFound(t *testing.T) {
	records := &stubRecords{records: map[string]*models.GeneratedModel{}}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: records})

	w := doJSON(t, router, http.MethodDelete, "/api/delete-model/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Model not found", decodeError(t, w))
}

func TestDelete_Success(t *testing.T) {
	records := &stubRecords{records: map[string]*models.GeneratedModel{
		"doc-1": {ID: "doc-1", TaskID: "task-1"},
	}}
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: records})

	w := doJSON(t, router, http.MethodDelete, "/api/delete-model/doc-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.DeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Model deleted successfully", resp.Message)
}

func TestNoRoute(t *testing.T) {
	router := newRouter(routerDeps{provider: &stubProvider{}, videos: &stubVideos{}, records: &stubRecords{}})

	w := doJSON(t, router, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", decodeError(t, w))
}

type stubStreamer struct {
	events  []meshy.TaskEvent
	openErr error
}

func (s *stubStreamer) StreamTask(ctx context.Context, taskID string) (<-chan meshy.TaskEvent, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	ch := make(chan meshy.TaskEvent, len(s.events))
	for _, event := range s.events {
		ch <- event
	}
	close(ch)
	return ch, nil
}

func streamRouter(streamer services.StatusStreamer) *gin.Engine {
	handler := handlers.NewStreamHandler(streamer, zap.NewNop())
	router := gin.New()
	router.GET("/api/stream-status/:task_id", handler.StreamStatus)
	return router
}

func TestStreamStatus_RelaysEventsUntilClose(t *testing.T) {
	streamer := &stubStreamer{events: []meshy.TaskEvent{
		{Status: "processing", Data: map[string]interface{}{"status": "IN_PROGRESS", "progress": float64(10)}},
		{Status: "processing", Data: map[string]interface{}{"status": "IN_PROGRESS", "progress": float64(80)}},
		{Status: "succeeded", Data: map[string]interface{}{"status": "SUCCEEDED", "progress": float64(100)}},
	}}
	router := streamRouter(streamer)

	req := httptest.NewRequest(http.MethodGet, "/api/stream-status/task-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 3, bytes.Count([]byte(body), []byte("data: ")))
	assert.Contains(t, body, `"status":"SUCCEEDED"`)
}

func TestStreamStatus_OpenError(t *testing.T) {
	router := streamRouter(&stubStreamer{openErr: errors.New("upstream returned status 404")})

	req := httptest.NewRequest(http.MethodGet, "/api/stream-status/task-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `data: {"error":"upstream returned status 404"}`)
}

func TestStreamStatus_EventError(t *testing.T) {
	streamer := &stubStreamer{events: []meshy.TaskEvent{
		{Status: "processing", Data: map[string]interface{}{"status": "IN_PROGRESS"}},
		{Err: errors.New("malformed event payload")},
	}}
	router := streamRouter(streamer)

	req := httptest.NewRequest(http.MethodGet, "/api/stream-status/task-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `"status":"IN_PROGRESS"`)
	assert.Contains(t, body, `data: {"error":"malformed event payload"}`)
}
