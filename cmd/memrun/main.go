package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/clog/slag"
	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/joshrwolf/memrun"
	"github.com/joshrwolf/memrun/internal/manifest"
)

type options struct {
	logLevel slag.Level

	manifestPath string
	argv0        string
	env          []string
	inheritEnv   bool
	replace      bool
	validateOnly bool
}

// setupLogging configures logging for the command
func (o *options) setupLogging(ctx context.Context) context.Context {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           charmlog.Level(o.logLevel),
		ReportTimestamp: !isatty.IsTerminal(os.Stderr.Fd()),
	})
	ctx = clog.WithLogger(ctx, clog.New(l))
	slog.SetDefault(slog.New(l))
	return ctx
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		clog.FatalContextf(ctx, "error: %v", err)
	}
}

func run(ctx context.Context) error {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "memrun [flags] <elf-file|-> [args...]",
		Short: "Execute ELF binaries directly from memory",
		Long: `memrun stages an ELF binary into an anonymous memory-backed file and
executes it without writing it to disk. By default the binary runs in a
child process and memrun exits with the child's exit code; with --replace
the memrun process itself is replaced by the binary.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx = opts.setupLogging(ctx)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}

	// Define flags
	rootCmd.PersistentFlags().Var(&opts.logLevel, "log-level", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&opts.manifestPath, "manifest", "f", "", "YAML run manifest")
	rootCmd.Flags().StringVar(&opts.argv0, "argv0", "", "program name the binary sees as argv[0]")
	rootCmd.Flags().StringArrayVarP(&opts.env, "env", "e", nil, "environment entry KEY=VALUE (repeatable)")
	rootCmd.Flags().BoolVar(&opts.inheritEnv, "inherit-env", false, "start from the caller's environment")
	rootCmd.Flags().BoolVar(&opts.replace, "replace", false, "replace the memrun process instead of forking")
	rootCmd.Flags().BoolVar(&opts.validateOnly, "validate-only", false, "validate the image and exit")

	return rootCmd.ExecuteContext(ctx)
}

func (o *options) run(ctx context.Context, args []string) error {
	log := clog.FromContext(ctx)

	// Start from the manifest (if any), then let flags and positional
	// arguments override it.
	var m *manifest.Manifest
	if o.manifestPath != "" {
		f, err := os.Open(o.manifestPath)
		if err != nil {
			return fmt.Errorf("opening manifest: %w", err)
		}
		parsed, err := manifest.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing manifest %s: %w", o.manifestPath, err)
		}
		m = parsed
		log.Debug("loaded manifest", "path", o.manifestPath)
	} else {
		m = &manifest.Manifest{}
	}

	binary := m.Binary
	if len(args) > 0 {
		binary = args[0]
	}
	if binary == "" {
		return fmt.Errorf("provide an ELF file (or - for stdin), or a manifest with a binary entry")
	}

	image, err := readImage(binary)
	if err != nil {
		return err
	}
	log.Debug("read image", "source", binary, "bytes", len(image))

	if o.validateOnly {
		if err := memrun.Validate(image); err != nil {
			return err
		}
		log.Info("image is a valid ELF", "bytes", len(image))
		return nil
	}

	ropts := m.Options()
	if len(args) > 1 {
		ropts.Args = args[1:]
	}
	ropts.Env = append(ropts.Env, o.env...)
	if o.argv0 != "" {
		ropts.Argv0 = o.argv0
	}
	ropts.InheritEnv = ropts.InheritEnv || o.inheritEnv
	ropts.Replace = ropts.Replace || o.replace

	log.Debug("running image", "replace", ropts.Replace, "args", ropts.Args)
	code, err := memrun.RunWithOptions(ctx, image, ropts)
	if err != nil {
		return err
	}

	// Mirror the child's exit status.
	if code != 0 {
		log.Debug("child exited nonzero", "code", code)
		os.Exit(code)
	}
	return nil
}

// readImage reads the ELF bytes from a file path, or from stdin for "-".
func readImage(path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return b, nil
}
