//go:build linux && !nonamespacing

package maincmd

import (
	"fmt"
	"syscall"

	"github.com/opensync/grsync/internal/log"
)

// dropPrivileges drops from root to the given uid/gid, read from the
// daemon's module configuration (see rsyncdconfig.Config.DropUID/DropGID)
// rather than a single hardcoded account, so a config file can name a
// dedicated service account instead of the conventional "nobody".
func dropPrivileges(logger log.Logger, uid, gid int) error {
	if syscall.Getuid() != 0 {
		return nil
	}

	logger.Printf("running as root (uid 0), dropping privileges to uid=%d gid=%d", uid, gid)
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid(%d): %v", gid, err)
	}

	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid(%d): %v", uid, err)
	}

	// Defense in depth: exit if we can re-gain uid/gid 0 permission:
	if err := syscall.Setgid(0); err == nil {
		//lint:ignore ST1005 we need this punctuation for dramatic effect!
		return fmt.Errorf("unexpectedly able to re-gain gid 0 permission!")
	}

	if err := syscall.Setuid(0); err == nil {
		//lint:ignore ST1005 we need this punctuation for dramatic effect!
		return fmt.Errorf("unexpectedly able to re-gain uid 0 permission!")
	}

	return nil
}
