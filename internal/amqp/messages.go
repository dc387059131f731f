package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnrichmentJobMessage asks a worker to enrich one spooled receipt photo.
// It carries only the job ID and the image path; the worker reads the
// image from the shared spool directory.
type EnrichmentJobMessage struct {
	ID        uuid.UUID `json:"id"`
	ImagePath string    `json:"image_path"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnrichmentJobMessage creates a job message for a spooled image.
func NewEnrichmentJobMessage(id uuid.UUID, imagePath string) *EnrichmentJobMessage {
	return &EnrichmentJobMessage{
		ID:        id,
		ImagePath: imagePath,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EnrichmentJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EnrichmentJobMessageFromJSON creates a message from JSON bytes
func EnrichmentJobMessageFromJSON(data []byte) (*EnrichmentJobMessage, error) {
	var msg EnrichmentJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
