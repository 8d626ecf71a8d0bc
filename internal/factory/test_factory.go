package factory

import (
	"github.com/mcoot/balltoss/internal/dependencies/mocks"
	"github.com/mcoot/balltoss/internal/storage/memory"
	"github.com/mcoot/balltoss/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockIDs *mocks.MockIDs
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	mockIDs := mocks.NewMockIDs()
	app := newWithDependencies(memory.New(), nil, mockIDs, testutil.NopLogger())

	return &TestApp{
		App:     app,
		MockIDs: mockIDs,
	}
}
