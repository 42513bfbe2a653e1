package runner

import "time"

// TimeProvider abstracts the clock used to measure processing time so tests
// can make it deterministic.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider implements TimeProvider using the system clock.
type DefaultTimeProvider struct{}

// Now returns the current system time.
func (DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// Since returns the duration elapsed since t using the system clock.
func (DefaultTimeProvider) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// MockTimeProvider is a clock that only moves when advanced.
type MockTimeProvider struct {
	current time.Time
	// Step is added to the clock after every call to Now.
	Step time.Duration
}

// NewMockTimeProvider creates a MockTimeProvider starting at start.
func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{current: start}
}

// Now returns the mock time and advances it by Step.
func (m *MockTimeProvider) Now() time.Time {
	t := m.current
	m.current = m.current.Add(m.Step)
	return t
}

// Since returns the mock time elapsed since t.
func (m *MockTimeProvider) Since(t time.Time) time.Duration {
	return m.current.Sub(t)
}

// Advance moves the mock clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.current = m.current.Add(d)
}
