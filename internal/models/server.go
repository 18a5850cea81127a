package models

import (
	"time"

	"github.com/google/uuid"
)

// Server represents a hearth server (Discord's "guild")
type Server struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewServer creates a new server
func NewServer(name string, ownerID uuid.UUID) *Server {
	return &Server{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
}
