package models

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type GenerateResponse struct {
	Success bool                   `json:"success"`
	TaskID  string                 `json:"task_id"`
	Message string                 `json:"message"`
	Result  map[string]interface{} `json:"result"`
}

type StatusResponse struct {
	TaskID    string                 `json:"task_id"`
	Status    string                 `json:"status"`
	Progress  int                    `json:"progress"`
	ModelInfo map[string]interface{} `json:"model_info"`
}

type FetchResponse struct {
	Success        bool   `json:"success"`
	TaskID         string `json:"task_id"`
	ModelPublicURL string `json:"model_public_url"`
	FirestoreDocID string `json:"firestore_doc_id"`
	ThumbnailURL   string `json:"thumbnail_url"`
}

type ModelListResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Models  []GeneratedModel `json:"models"`
}

type VideoModelsResponse struct {
	Success bool             `json:"success"`
	VideoID string           `json:"video_id"`
	Count   int              `json:"count"`
	Models  []GeneratedModel `json:"models"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
