package models

// Video is the source record a generation request starts from. Video
// documents carry many app-owned fields; only the ones this service reads
// or writes are mapped here.
type Video struct {
	ID          string                 `firestore:"-" json:"id"`
	UserID      string                 `firestore:"userId" json:"userId"`
	ModelImages []string               `firestore:"modelImages" json:"modelImages"`
	MeshyTaskID string                 `firestore:"meshyTaskId" json:"meshyTaskId"`
	MeshyStatus string                 `firestore:"meshyStatus" json:"meshyStatus"`
	MeshyJob    map[string]interface{} `firestore:"meshyJob" json:"meshyJob"`
}
