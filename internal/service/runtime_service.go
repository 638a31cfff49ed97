package service

import (
	"context"
	"fmt"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/debug"
)

// RuntimeService replays migration files through the execution runtime.
type RuntimeService struct {
	runtime domain.Runtime
}

// NewRuntimeService creates a new runtime service.
func NewRuntimeService(runtime domain.Runtime) *RuntimeService {
	return &RuntimeService{runtime: runtime}
}

// Run executes one runtime command against the application's database.
func (s *RuntimeService) Run(ctx context.Context, cmd domain.RuntimeCommand, entryPath string) ([]byte, error) {
	debug.Debug("runtime", "command", string(cmd), "entry", entryPath)
	out, err := s.runtime.Run(ctx, cmd, entryPath)
	if err != nil {
		return out, fmt.Errorf("%s failed: %w", cmd, err)
	}
	return out, nil
}
