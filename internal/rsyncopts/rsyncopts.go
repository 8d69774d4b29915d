// Package rsyncopts parses the CLI/daemon-flag surface (§6) into an
// Options record, using the same bundling-aware option parser
// the project has always reached for.
package rsyncopts

import (
	"fmt"

	"github.com/DavidGamba/go-getoptions"
)

// Options is the parsed flag record a session is built from. After parsing
// only the sender/receiver role can change, through SetSender.
// Accessor methods (rather than exported fields) keep call sites reading
// naturally as opts.Sender(), opts.Verbose(), etc., and leave room to
// derive a field (e.g. archive-mode expansion) without changing callers.
type Options struct {
	sender bool
	server bool
	daemon bool

	recursive bool
	verbose   int
	dryRun    bool

	preserveTimes     bool
	preservePerms     bool
	preserveLinks     bool
	preserveGid       bool
	preserveUid       bool
	preserveDevices   bool
	preserveSpecials  bool
	preserveHardLinks bool

	deleteMode bool

	rsyncPath string
	address   string
	config    string
}

// SetSender overrides the sender/receiver role after parsing, for callers
// that decide the role from context (e.g. which side of a local transfer
// is the source) rather than from an explicit --sender flag.
func (o *Options) SetSender(v bool) { o.sender = v }

func (o *Options) Sender() bool            { return o.sender }
func (o *Options) Server() bool            { return o.server }
func (o *Options) Daemon() bool            { return o.daemon }
func (o *Options) Recursive() bool         { return o.recursive }
func (o *Options) Verbose() bool           { return o.verbose > 0 }
func (o *Options) VerboseLevel() int       { return o.verbose }
func (o *Options) DryRun() bool            { return o.dryRun }
func (o *Options) PreserveMTimes() bool    { return o.preserveTimes }
func (o *Options) PreservePerms() bool     { return o.preservePerms }
func (o *Options) PreserveLinks() bool     { return o.preserveLinks }
func (o *Options) PreserveGid() bool       { return o.preserveGid }
func (o *Options) PreserveUid() bool       { return o.preserveUid }
func (o *Options) PreserveDevices() bool   { return o.preserveDevices }
func (o *Options) PreserveSpecials() bool  { return o.preserveSpecials }
func (o *Options) PreserveHardLinks() bool { return o.preserveHardLinks }
func (o *Options) DeleteMode() bool        { return o.deleteMode }
func (o *Options) RsyncPath() string       { return o.rsyncPath }
func (o *Options) Address() string         { return o.address }
func (o *Options) Config() string          { return o.config }

// ParsedCommand is the result of ParseArguments: the parsed Options plus
// whatever positional arguments remained (source/destination paths,
// conventionally prefixed with "." for the server calling convention).
type ParsedCommand struct {
	Options       *Options
	RemainingArgs []string
}

// ParseArguments parses a full rsync-style argument list, as received
// either from the local CLI or from the flag lines of a daemon-mode
// session. Short flags bundle (e.g. "-nlogDtpr"), matching the wire
// convention real rsync clients use.
func ParseArguments(args []string) (*ParsedCommand, error) {
	var o Options
	var archive bool
	var devicesAlias bool

	opt := getoptions.New()
	opt.SetMode(getoptions.Bundling)

	opt.BoolVar(&o.sender, "sender", false)
	opt.BoolVar(&o.server, "server", false)
	opt.BoolVar(&o.daemon, "daemon", false)
	opt.BoolVar(&archive, "archive", false, opt.Alias("a"))
	opt.BoolVar(&o.recursive, "recursive", false, opt.Alias("r"))
	opt.IncrementVar(&o.verbose, "verbose", 0, opt.Alias("v"))
	opt.BoolVar(&o.dryRun, "dry-run", false, opt.Alias("n"))
	opt.BoolVar(&o.preserveTimes, "times", false, opt.Alias("t"))
	opt.BoolVar(&o.preservePerms, "perms", false, opt.Alias("p"))
	opt.BoolVar(&o.preserveLinks, "links", false, opt.Alias("l"))
	opt.BoolVar(&o.preserveGid, "group", false, opt.Alias("g"))
	opt.BoolVar(&o.preserveUid, "owner", false, opt.Alias("o"))
	opt.BoolVar(&devicesAlias, "devices", false, opt.Alias("D"))
	opt.BoolVar(&o.deleteMode, "delete", false)
	opt.StringVar(&o.rsyncPath, "rsync-path", "")
	opt.StringVar(&o.address, "address", "")
	opt.StringVar(&o.config, "config", "")

	remaining, err := opt.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}

	if devicesAlias {
		o.preserveDevices = true
		o.preserveSpecials = true
	}
	if archive {
		o.recursive = true
		o.preserveLinks = true
		o.preservePerms = true
		o.preserveTimes = true
		o.preserveGid = true
		o.preserveUid = true
		o.preserveDevices = true
		o.preserveSpecials = true
	}

	return &ParsedCommand{Options: &o, RemainingArgs: remaining}, nil
}

// ServerOptions renders the subset of opts that must be re-exercised on
// the remote side into the short flag string a spawned remote-shell peer
// expects after "--server" (e.g. "-logDtpr"), mirroring the bundled
// short-option convention ParseArguments accepts.
func ServerOptions(o *Options) []string {
	flags := "-"
	if o.recursive {
		flags += "r"
	}
	if o.preserveLinks {
		flags += "l"
	}
	if o.preserveGid {
		flags += "g"
	}
	if o.preserveDevices {
		flags += "D"
	}
	if o.preserveTimes {
		flags += "t"
	}
	if o.preservePerms {
		flags += "p"
	}
	if o.preserveUid {
		flags += "o"
	}
	for i := 0; i < o.verbose; i++ {
		flags += "v"
	}
	var out []string
	if flags != "-" {
		out = append(out, flags)
	}
	if o.dryRun {
		out = append(out, "-n")
	}
	if o.deleteMode {
		out = append(out, "--delete")
	}
	return out
}
