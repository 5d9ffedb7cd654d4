// Package testing switches the process into test mode when imported, so binaries and
// app wiring skip network side effects under go test.
package testing

import (
	"os"
	"sync"
)

const testModeEnv = "FREIGHTDESK_TEST_MODE"

var once sync.Once

// Enable sets the test-mode flag and pins the store to memory. It is idempotent.
func Enable() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
		_ = os.Setenv("STORE_BACKEND", "memory")
	})
}

func init() {
	Enable()
}
