// Package rsyncclient drives one rsync session from the client side of a
// "--server" connection: it performs the protocol version and checksum
// seed handshake, then runs either the sender or the receiver role over
// an arbitrary io.ReadWriter (a subprocess's stdin/stdout, an SSH session,
// or an in-process io.Pipe()).
package rsyncclient

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/opensync/grsync"
	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/receiver"
	"github.com/opensync/grsync/internal/rsyncopts"
	"github.com/opensync/grsync/internal/rsyncos"
	"github.com/opensync/grsync/internal/rsyncwire"
	"github.com/opensync/grsync/internal/sender"
)

// Option configures a Client returned by New.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithSender makes the client act as the sender (the remote peer must act
// as receiver), the same role reversal "--sender" selects on a real rsync
// command line.
func WithSender() Option {
	return optionFunc(func(c *Client) {
		c.opts.SetSender(true)
	})
}

// WithLogger directs diagnostic output to logger instead of the default
// discarding logger.
func WithLogger(logger log.Logger) Option {
	return optionFunc(func(c *Client) {
		c.logger = logger
	})
}

// Client runs one rsync session, configured by the flag-style args New was
// given (the same short/long flags a real rsync invocation accepts).
type Client struct {
	opts   *rsyncopts.Options
	logger log.Logger
}

// New parses args (in the same bundled-flag style the command line and the
// daemon's flag lines use) into a Client ready to Run a session.
func New(args []string, opts ...Option) (*Client, error) {
	pc, err := rsyncopts.ParseArguments(args)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:   pc.Options,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c, nil
}

// Run performs the version/seed handshake over rw and then runs the
// configured role (sender or receiver) against paths. Exactly one path is
// supported, matching the calling convention a spawned "--server" rsync
// process expects.
func (c *Client) Run(ctx context.Context, rw io.ReadWriter, paths []string) error {
	if len(paths) != 1 {
		return fmt.Errorf("rsyncclient: exactly one path supported, got %q", paths)
	}

	crd := &rsyncwire.CountingReader{R: rw}
	cwr := &rsyncwire.CountingWriter{W: rw}
	conn := &rsyncwire.Conn{
		Reader: crd,
		Writer: cwr,
	}

	if err := conn.WriteInt32(grsync.ProtocolVersion); err != nil {
		return err
	}
	remoteProtocol, err := conn.ReadInt32()
	if err != nil {
		return err
	}
	if remoteProtocol != grsync.ProtocolVersion {
		return fmt.Errorf("rsyncclient: %w: unsupported remote protocol version %d", grsync.ErrProtocolVersion, remoteProtocol)
	}

	seed, err := conn.ReadInt32()
	if err != nil {
		return fmt.Errorf("reading checksum seed: %w", err)
	}

	mrd := &rsyncwire.MultiplexReader{Reader: rw}
	conn.Reader = bufio.NewReaderSize(mrd, 256*1024)

	if c.opts.Sender() {
		return c.runSender(crd, cwr, conn, seed, paths[0])
	}
	return c.runReceiver(ctx, crd, cwr, conn, seed, paths[0])
}

func (c *Client) runSender(crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, conn *rsyncwire.Conn, seed int32, src string) error {
	st := &sender.Transfer{
		Logger: c.logger,
		Opts:   c.opts,
		Conn:   conn,
		Seed:   seed,
	}
	// The receiving server reads the exclusion-list terminator before the
	// file list, as in the receiver path below.
	const exclusionListEnd = 0
	if err := conn.WriteInt32(exclusionListEnd); err != nil {
		return err
	}
	stats, err := st.Do(crd, cwr, src, []string{src}, sender.FilterList{})
	if err != nil {
		return err
	}
	c.logger.Printf("sender done: %+v", stats)
	return nil
}

func (c *Client) runReceiver(_ context.Context, _ *rsyncwire.CountingReader, _ *rsyncwire.CountingWriter, conn *rsyncwire.Conn, seed int32, dest string) error {
	if c.opts.PreserveHardLinks() {
		return fmt.Errorf("support for hard links not yet implemented")
	}

	rt := &receiver.Transfer{
		Logger: c.logger,
		Opts: &receiver.TransferOpts{
			Server:  c.opts.Server(),
			Verbose: c.opts.Verbose(),
			DryRun:  c.opts.DryRun(),

			DeleteMode:       c.opts.DeleteMode(),
			PreserveGid:      c.opts.PreserveGid(),
			PreserveUid:      c.opts.PreserveUid(),
			PreserveLinks:    c.opts.PreserveLinks(),
			PreservePerms:    c.opts.PreservePerms(),
			PreserveDevices:  c.opts.PreserveDevices(),
			PreserveSpecials: c.opts.PreserveSpecials(),
			PreserveTimes:    c.opts.PreserveMTimes(),
		},
		Dest: dest,
		Env:  rsyncos.Std{},
		Conn: conn,
		Seed: seed,
	}

	const exclusionListEnd = 0
	if err := conn.WriteInt32(exclusionListEnd); err != nil {
		return err
	}

	fileList, err := rt.ReceiveFileList()
	if err != nil {
		return err
	}
	if c.opts.Verbose() {
		c.logger.Printf("received %d names", len(fileList))
	}

	stats, err := rt.Do(conn, fileList, false)
	if err != nil {
		return err
	}
	c.logger.Printf("receiver done: %+v", stats)
	return nil
}
