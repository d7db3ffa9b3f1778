package config

import "time"

type Sync struct{}

var _ SyncConfig = Sync{}

// GetSyncConcurrency caps the reconciler worker pool. 1 keeps the sweep sequential.
func (Sync) GetSyncConcurrency() int {
	n := GetEnvInt("SYNC_CONCURRENCY", 1)
	if n < 1 {
		return 1
	}
	return n
}

// GetSyncInterval enables the in-process reconciler loop when non-zero.
func (Sync) GetSyncInterval() time.Duration {
	return GetEnvDuration("SYNC_INTERVAL", 0)
}
