package events

import (
	"fmt"

	"photovault/internal/config"
	"photovault/internal/photo"
)

// NewLogFromConfig creates an EventLog implementation based on the events
// config type.
func NewLogFromConfig(cfg config.EventsConfig) (photo.EventLog, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryLog(), nil
	case "bolt":
		if cfg.Path == "" {
			return nil, fmt.Errorf("bolt event log requires path to be set")
		}
		return NewBoltLog(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown event log type: %s", cfg.Type)
	}
}
