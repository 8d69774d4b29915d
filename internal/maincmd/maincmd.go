// Package maincmd implements the CLI-facing dispatch a single "rsync"
// binary needs: act as the client for a local or remote-shell transfer,
// act as the "--server" endpoint a remote shell spawns, or run as a
// "--daemon" listening for incoming TCP connections.
package maincmd

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/rsyncdconfig"
	"github.com/opensync/grsync/internal/rsyncopts"
	"github.com/opensync/grsync/internal/rsyncos"
	"github.com/opensync/grsync/internal/rsyncstats"
	"github.com/opensync/grsync/rsyncd"
)

// Main parses args the way a real rsync invocation would and dispatches
// to the daemon, server or client calling convention.
func Main(ctx context.Context, osenv rsyncos.Std, args []string) (*rsyncstats.TransferStats, error) {
	pc, err := rsyncopts.ParseArguments(args)
	if err != nil {
		return nil, err
	}
	opts := pc.Options
	remaining := pc.RemainingArgs

	logger := log.New(osenv.Stderr)
	if opts.Verbose() {
		log.SetLogger(logger)
	}

	// Calling convention: a remote shell spawned us as the daemon-protocol
	// endpoint, i.e. "--server --daemon" (used for authenticated-SSH
	// daemon access). The @RSYNCD: greeting runs over our stdin/stdout.
	if opts.Server() && opts.Daemon() {
		srv, err := daemonServer(opts, logger)
		if err != nil {
			return nil, err
		}
		conn := &readWriter{r: osenv.Stdin, w: osenv.Stdout}
		return nil, srv.HandleDaemonConn(ctx, osenv, conn, remoteShellAddr{})
	}

	// Calling convention: a remote shell spawned us as the plain command
	// endpoint, i.e. "--server [--sender] ... . PATH...".
	if opts.Server() {
		srv, err := rsyncd.NewServer(nil, rsyncd.WithStderr(osenv.Stderr))
		if err != nil {
			return nil, err
		}
		if len(remaining) < 2 {
			return nil, fmt.Errorf("invalid args: at least one directory required")
		}
		if got, want := remaining[0], "."; got != want {
			return nil, fmt.Errorf("protocol error: got %q, expected %q", got, want)
		}
		conn := srv.NewConnection(osenv.Stdin, osenv.Stdout)
		const negotiate = true
		return nil, srv.HandleConn(nil, conn, remaining[1:], opts, negotiate)
	}

	if opts.Daemon() {
		return nil, daemonMain(ctx, osenv, opts, logger)
	}

	return clientMain(ctx, osenv, opts, remaining, logger)
}

func daemonServer(opts *rsyncopts.Options, logger log.Logger) (*rsyncd.Server, error) {
	var modules []rsyncd.Module
	if opts.Config() != "" {
		cfg, err := rsyncdconfig.FromFile(opts.Config())
		if err != nil {
			return nil, err
		}
		modules = cfg.Modules
	}
	return rsyncd.NewServer(modules, rsyncd.WithLogger(logger))
}

// daemonMain runs the TCP listening loop real "rsync --daemon" provides:
// load the module configuration, bind a listener and hand every accepted
// connection to the @RSYNCD: greeting handler.
func daemonMain(ctx context.Context, osenv rsyncos.Std, opts *rsyncopts.Options, logger log.Logger) error {
	if opts.Config() == "" {
		return fmt.Errorf("--daemon requires --config=PATH naming a module configuration file")
	}
	cfg, err := rsyncdconfig.FromFile(opts.Config())
	if err != nil {
		return err
	}

	srv, err := rsyncd.NewServer(cfg.Modules, rsyncd.WithStderr(osenv.Stderr), rsyncd.WithLogger(logger))
	if err != nil {
		return err
	}

	listenAddr := opts.Address()
	if listenAddr == "" {
		listenAddr = cfg.Address
	}
	if listenAddr == "" {
		listenAddr = ":873"
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	if err := dropPrivileges(logger, cfg.DropUID(), cfg.DropGID()); err != nil {
		ln.Close()
		return err
	}
	logger.Printf("rsync daemon listening on rsync://%s", ln.Addr())
	return srv.Serve(ctx, ln)
}

// remoteShellAddr stands in for the net.Addr a net.Conn would carry: a
// remote shell's stdin/stdout has no address, but ACL checks still need
// something to format and compare against.
type remoteShellAddr struct{}

func (remoteShellAddr) Network() string { return "remote-shell" }
func (remoteShellAddr) String() string  { return "<remote-shell>" }

type readWriter struct {
	r io.Reader
	w io.Writer
}

func (rw *readWriter) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *readWriter) Write(p []byte) (int, error) { return rw.w.Write(p) }
