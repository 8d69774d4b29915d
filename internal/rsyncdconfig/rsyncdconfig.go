// Package rsyncdconfig loads the TOML file a daemon-mode server reads its
// module list and listen address from, decoding directly into the
// rsyncd.Module shape the server already accepts.
package rsyncdconfig

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/opensync/grsync/rsyncd"
)

// Config is the top-level shape of a daemon configuration file:
//
//	address = ":873"
//	uid = 65534
//	gid = 65534
//
//	[[module]]
//	name = "backup"
//	path = "/srv/backup"
//	acl = ["allow 10.0.0.0/8", "deny all"]
//	writable = true
type Config struct {
	Address string `toml:"address"`

	// UID and GID name the unprivileged account the daemon drops to after
	// binding its listening socket, when started as root. Nil means the
	// conventional "nobody" account (65534/65534).
	UID *int `toml:"uid"`
	GID *int `toml:"gid"`

	Modules []rsyncd.Module `toml:"module"`
}

// defaultDropUID and defaultDropGID are the conventional "nobody" IDs used
// when a config file does not name its own.
const (
	defaultDropUID = 65534
	defaultDropGID = 65534
)

// DropUID returns the uid the daemon should drop privileges to.
func (c *Config) DropUID() int {
	if c == nil || c.UID == nil {
		return defaultDropUID
	}
	return *c.UID
}

// DropGID returns the gid the daemon should drop privileges to.
func (c *Config) DropGID() int {
	if c == nil || c.GID == nil {
		return defaultDropGID
	}
	return *c.GID
}

// FromFile parses the daemon configuration at path.
func FromFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading daemon config %s: %w", path, err)
	}
	return &cfg, nil
}
