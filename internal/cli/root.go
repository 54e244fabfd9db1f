package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/filekeystore/internal/config"
	"github.com/iudanet/filekeystore/internal/iocli"
	"github.com/iudanet/filekeystore/internal/keystore"
	"github.com/iudanet/filekeystore/internal/keystore/boltdb"
	"github.com/iudanet/filekeystore/internal/keystore/file"
)

// BuildInfo is set via ldflags in the main package
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Cli holds state shared by all commands
type Cli struct {
	io         iocli.IO
	logOut     io.Writer
	build      BuildInfo
	flags      config.Config
	configPath string
}

// Execute runs the command tree on the process standard streams.
func Execute(build BuildInfo) error {
	return NewRootCommand(iocli.NewStdio(), os.Stderr, build).Execute()
}

// NewRootCommand builds the command tree. Logs go to logOut.
func NewRootCommand(stdio iocli.IO, logOut io.Writer, build BuildInfo) *cobra.Command {
	c := &Cli{
		io:     stdio,
		logOut: logOut,
		build:  build,
	}

	root := &cobra.Command{
		Use:   "filekeystore",
		Short: "Plaintext credential keystore kept in a single file",
		Long: "filekeystore stores credentials keyed by protocol, user, server, path, port, realm and authtype.\n" +
			"Values and secrets are base64 encoded, NOT encrypted. Protect the keystore file accordingly.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdio)
	root.SetErr(logOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.File, "file", "f", "", "path to the keystore file (env "+config.EnvFile+")")
	pf.StringVar(&c.configPath, "config", "", "path to a YAML config file (env "+config.EnvConfig+")")
	pf.StringVar(&c.flags.Backend, "backend", "", "storage backend: file or bolt (env "+config.EnvBackend+")")
	pf.StringVar(&c.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (env "+config.EnvLogLevel+")")

	root.AddCommand(c.newInitCommand())
	root.AddCommand(c.newStoreCommand())
	root.AddCommand(c.newFindCommand())
	root.AddCommand(c.newRemoveCommand())
	root.AddCommand(c.newVersionCommand())

	return root
}

// open resolves the configuration and opens the configured backend.
func (c *Cli) open(ctx context.Context) (keystore.Keystore, error) {
	cfg, err := config.Load(c.configPath, c.flags)
	if err != nil {
		return nil, err
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	// Логи пишем в stderr
	logger := slog.New(slog.NewTextHandler(c.logOut, &slog.HandlerOptions{Level: level}))

	var ks keystore.Keystore
	switch cfg.Backend {
	case config.BackendBolt:
		ks, err = boltdb.New(ctx, cfg.File, boltdb.WithLogger(logger))
	default:
		ks, err = file.New(cfg.File, file.WithLogger(logger))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore %s: %w", cfg.File, err)
	}

	return ks, nil
}

// withKeystore opens the keystore, runs fn and closes it.
func (c *Cli) withKeystore(ctx context.Context, fn func(ks keystore.Keystore) error) (err error) {
	ks, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ks.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close keystore: %w", cerr)
		}
	}()

	return fn(ks)
}
