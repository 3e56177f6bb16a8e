package supabase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	client := NewStorageClient("https://project.supabase.co", "key", "models")

	url := client.PublicURL("task-1.glb")

	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/models/task-1.glb", url)
}

func TestPublicURL_TrimsTrailingSlash(t *testing.T) {
	client := NewStorageClient("https://project.supabase.co/", "key", "models")

	url := client.PublicURL("task-1.glb")

	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/models/task-1.glb", url)
}
