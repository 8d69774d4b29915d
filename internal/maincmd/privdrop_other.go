//go:build !linux || nonamespacing

package maincmd

import "github.com/opensync/grsync/internal/log"

// dropPrivileges is a no-op outside Linux (or when built with
// nonamespacing): there is no portable setuid/setgid story across every
// platform Go targets, so those hosts run the daemon with whatever
// privileges they were started with.
func dropPrivileges(logger log.Logger, uid, gid int) error {
	return nil
}
