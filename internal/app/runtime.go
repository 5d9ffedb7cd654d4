package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "FREIGHTDESK_TEST_MODE"

// testMode caches FREIGHTDESK_TEST_MODE; nil until first read.
var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should skip opening listeners and connections.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the flag after environment changes.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
	return on
}
