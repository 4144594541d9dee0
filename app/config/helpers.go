package config

import (
	"time"
)

// GetUpdateInterval returns the update interval as time.Duration.
func (s *SourceConfig) GetUpdateInterval() time.Duration {
	if s.UpdateInterval <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.UpdateInterval) * time.Second
}

// GetTimeout returns the HTTP timeout as time.Duration.
func (s *SourceConfig) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// GetRequestDelay returns the self-imposed delay between consecutive
// requests within a single fetch batch.
func (s *SourceConfig) GetRequestDelay() time.Duration {
	if s.RequestDelay <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.RequestDelay) * time.Millisecond
}
