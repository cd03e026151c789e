package task

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id     uuid.UUID
	execFn func(ctx context.Context) error
	runs   atomic.Int32
}

func newMockTask(execFn func(ctx context.Context) error) *mockTask {
	return &mockTask{id: uuid.New(), execFn: execFn}
}

func (m *mockTask) ID() uuid.UUID { return m.id }

func (m *mockTask) Type() string { return "mock" }

func (m *mockTask) Execute(ctx context.Context) error {
	m.runs.Add(1)
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}
