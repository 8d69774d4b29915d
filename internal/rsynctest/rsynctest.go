// Package rsynctest provides small helpers shared by tests that need to
// interoperate with a real, installed rsync binary.
package rsynctest

import (
	"os/exec"
	"testing"
)

// AnyRsync locates an rsync binary on PATH, skipping the calling test if
// none is installed (interoperability tests are only meaningful where a
// reference implementation is available to talk to).
func AnyRsync(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("rsync")
	if err != nil {
		t.Skip("no rsync binary found on PATH, skipping interoperability test")
	}
	return path
}
