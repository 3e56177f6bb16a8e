package models

import "time"

// ModelStatusReady is the only status ever persisted for a generated
// model: records are written after the storage upload succeeded, never
// for partial work.
const ModelStatusReady = "ready"

// GeneratedModel is a stored 3D asset plus its metadata record in the
// generated_models_files collection.
type GeneratedModel struct {
	ID           string    `firestore:"-" json:"id"`
	UserID       string    `firestore:"userId" json:"userId"`
	VideoID      string    `firestore:"videoId" json:"videoId"`
	TaskID       string    `firestore:"taskId" json:"taskId"`
	ModelFileURL string    `firestore:"modelFileUrl" json:"modelFileUrl"`
	Source       string    `firestore:"source" json:"source"`
	Status       string    `firestore:"status" json:"status"`
	ThumbnailURL string    `firestore:"thumbnailUrl" json:"thumbnailUrl"`
	VideoURL     string    `firestore:"videoUrl" json:"videoUrl"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt" json:"updatedAt"`
}
