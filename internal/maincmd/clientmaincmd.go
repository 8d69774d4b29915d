package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/opensync/grsync/internal/log"
	"github.com/opensync/grsync/internal/rsyncopts"
	"github.com/opensync/grsync/internal/rsyncos"
	"github.com/opensync/grsync/internal/rsyncstats"
	"github.com/opensync/grsync/rsyncclient"
	"github.com/opensync/grsync/rsyncd"
)

// clientMain dispatches a parsed client invocation: exactly one of the
// source or destination arguments may name a remote host (the
// "[user@]host:path" calling convention); the other is always local.
func clientMain(ctx context.Context, osenv rsyncos.Std, opts *rsyncopts.Options, remaining []string, logger log.Logger) (*rsyncstats.TransferStats, error) {
	if len(remaining) < 2 {
		return nil, fmt.Errorf("rsync error: at least one SRC and one DEST argument required")
	}
	dest := remaining[len(remaining)-1]
	sources := remaining[:len(remaining)-1]
	if len(sources) != 1 {
		// TODO: support more than one source argument
		return nil, fmt.Errorf("rsync error: exactly one SRC argument supported, got %q", sources)
	}
	src := sources[0]

	srcHost, srcPath, srcRemote := splitHostSpec(src)
	destHost, destPath, destRemote := splitHostSpec(dest)
	if srcRemote && destRemote {
		return nil, fmt.Errorf("rsync error: only one of SRC or DEST may be remote")
	}

	if !srcRemote && !destRemote {
		return localTransfer(ctx, opts, srcPath, destPath, logger)
	}

	// The local side is the sender exactly when the source is local (and
	// thus the destination names the remote host).
	sender := !srcRemote
	host, remotePath := srcHost, srcPath
	localPath := destPath
	if sender {
		host, remotePath = destHost, destPath
		localPath = srcPath
	}

	rc, wc, err := spawnRemoteShell(osenv, opts, host, remotePath, sender)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	defer wc.Close()

	clientOpts := []rsyncclient.Option{rsyncclient.WithLogger(logger)}
	if sender {
		clientOpts = append(clientOpts, rsyncclient.WithSender())
	}
	client, err := rsyncclient.New(serverOptionArgs(opts), clientOpts...)
	if err != nil {
		return nil, err
	}
	rw := &readWriter{r: rc, w: wc}
	if err := client.Run(ctx, rw, []string{localPath}); err != nil {
		return nil, err
	}
	return nil, nil
}

// splitHostSpec recognizes the "[user@]host:path" remote calling
// convention. A leading "./" or "/" path, or the absence of a colon
// before the first path separator, is always treated as local.
func splitHostSpec(arg string) (host, path string, remote bool) {
	idx := strings.IndexByte(arg, ':')
	if idx <= 0 {
		return "", arg, false
	}
	prefix := arg[:idx]
	if strings.ContainsRune(prefix, '/') {
		return "", arg, false
	}
	return prefix, arg[idx+1:], true
}

// spawnRemoteShell starts the configured remote shell (ssh by default,
// overridable via $RSYNC_RSH) and runs the peer rsync binary in "--server"
// mode on the other end, returning pipes to its stdout/stdin. localIsSender
// is the role the local side will play; the spawned peer always plays the
// opposite role.
func spawnRemoteShell(osenv rsyncos.Std, opts *rsyncopts.Options, host, path string, localIsSender bool) (io.ReadCloser, io.WriteCloser, error) {
	shell := os.Getenv("RSYNC_RSH")
	if shell == "" {
		shell = "ssh"
	}
	shellArgs, err := shlex.Split(shell)
	if err != nil {
		return nil, nil, err
	}

	user, machine := "", host
	if idx := strings.IndexByte(host, '@'); idx > -1 {
		user, machine = host[:idx], host[idx+1:]
	}
	if user != "" {
		shellArgs = append(shellArgs, "-l", user)
	}
	shellArgs = append(shellArgs, machine)

	rsyncPath := opts.RsyncPath()
	if rsyncPath == "" {
		rsyncPath = "rsync"
	}
	shellArgs = append(shellArgs, rsyncPath, "--server")
	if !localIsSender {
		shellArgs = append(shellArgs, "--sender")
	}
	shellArgs = append(shellArgs, serverOptionArgs(opts)...)
	shellArgs = append(shellArgs, ".", path)

	cmd := exec.Command(shellArgs[0], shellArgs[1:]...)
	cmd.Stderr = osenv.Stderr
	wc, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	rc, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return rc, wc, nil
}

// serverOptionArgs renders the subset of opts a spawned "--server" peer
// must also see, as a short-flag argument list rsyncopts.ParseArguments
// can parse right back.
func serverOptionArgs(opts *rsyncopts.Options) []string {
	return rsyncopts.ServerOptions(opts)
}

// localTransfer resolves the "both SRC and DEST are local" calling
// convention: rather than spawning a subprocess to talk to itself over a
// pipe, it runs an in-process rsyncd.Server on one end of an io.Pipe()
// loopback and drives the other end with rsyncclient, mirroring how
// rsyncclient's own tests exercise a programmatic transfer.
func localTransfer(ctx context.Context, opts *rsyncopts.Options, src, dest string, logger log.Logger) (*rsyncstats.TransferStats, error) {
	// The server side always plays the opposite role from the client: if
	// the client is the sender (reading src), the server is the receiver
	// writing to dest, and vice versa.
	sender := opts.Sender()
	serverPath, clientPath := src, dest
	if sender {
		serverPath, clientPath = dest, src
	}

	srv, err := rsyncd.NewServer(nil, rsyncd.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	stdinRd, stdinWr := io.Pipe()
	stdoutRd, stdoutWr := io.Pipe()
	conn := srv.NewConnection(stdinRd, stdoutWr)

	serverArgs := []string{"--server", "--sender"}
	if sender {
		serverArgs = []string{"--server"}
	}
	serverArgs = append(serverArgs, serverOptionArgs(opts)...)
	serverArgs = append(serverArgs, ".", serverPath)
	pc, err := rsyncopts.ParseArguments(serverArgs)
	if err != nil {
		return nil, fmt.Errorf("BUG: building local server args: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		const negotiate = true
		errCh <- srv.HandleConn(nil, conn, pc.RemainingArgs[1:], pc.Options, negotiate)
	}()

	clientOpts := []rsyncclient.Option{rsyncclient.WithLogger(logger)}
	if sender {
		clientOpts = append(clientOpts, rsyncclient.WithSender())
	}
	client, err := rsyncclient.New(serverOptionArgs(opts), clientOpts...)
	if err != nil {
		return nil, err
	}
	rw := &readWriter{r: stdoutRd, w: stdinWr}
	runErr := client.Run(ctx, rw, []string{clientPath})
	stdinWr.Close()
	if srvErr := <-errCh; srvErr != nil && runErr == nil {
		runErr = srvErr
	}
	if runErr != nil {
		return nil, runErr
	}
	return nil, nil
}
