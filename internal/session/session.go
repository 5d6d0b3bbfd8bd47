package session

import (
	"sync"
	"time"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// Conversation holds one conversation's history and activity timestamp.
// History, timestamps and users are guarded by the owning Store; turn
// serializes requests that run the agent loop against this conversation.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	messages    schema.Messages
	lastUpdated time.Time

	// users counts requests holding or waiting for turn. Sweep skips
	// conversations with users > 0.
	users int
	turn  sync.Mutex
}

