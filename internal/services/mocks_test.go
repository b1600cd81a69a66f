package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockWebSocketHub is a mock for the WebSocketHub interface
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}

func (m *MockWebSocketHub) ClientCount() int {
	return m.Called().Int(0)
}

// MockDashboardMetrics is a mock for the DashboardMetrics interface
type MockDashboardMetrics struct {
	mock.Mock
}

func (m *MockDashboardMetrics) RecordFilterEvaluation(ctx context.Context, matched int) {
	m.Called(ctx, matched)
}

func (m *MockDashboardMetrics) RecordExport(ctx context.Context, format string) {
	m.Called(ctx, format)
}
