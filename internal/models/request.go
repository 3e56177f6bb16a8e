package models

type GenerateRequest struct {
	VideoID string `json:"video_id"`
	UserID  string `json:"user_id"`
}

type FetchRequest struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}
