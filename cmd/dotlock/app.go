package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/dotlock"
	"pkt.systems/dotlock/internal/pathutil"
	"pkt.systems/dotlock/internal/privilege"
	"pkt.systems/dotlock/internal/svcfields"
	"pkt.systems/pslog"
)

const envPrefix = "DOTLOCK"

func submain(ctx context.Context) int {
	minLevel, _ := pslog.ParseLevel(dotlock.DefaultLogLevel)
	baseLogger := pslog.LoggerFromEnv(context.Background(),
		pslog.WithEnvPrefix("DOTLOCK_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: minLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "dotlock")
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	_, err := cmd.ExecuteContextC(ctx)
	return exitStatus(baseLogger, err)
}

// exitStatus maps the command result to the helper's exit status. Only
// genuine errors are logged; a busy lock or a negative -t result is an answer,
// not a failure.
func exitStatus(logger pslog.Logger, err error) int {
	if err == nil {
		return dotlock.ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return dotlock.ExitError
	}
	code := dotlock.ExitCode(err)
	cliLogger := svcfields.WithSubsystem(logger, "cli.root")
	if code == dotlock.ExitError {
		cliLogger.Error("command failed", "error", err, "exit", code)
	} else {
		cliLogger.Debug("command finished", "result", err, "exit", code)
	}
	return code
}

type rootFlags struct {
	try        bool
	force      bool
	unlock     bool
	privileged bool
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	var flags rootFlags
	var snap privilege.Snapshot
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "dotlock [-t|-f|-u] [-p] [-r retries] <mailbox>",
		Short: "dotlock serializes access to a mailbox file with an NFS-safe dot-lock",
		Long: `dotlock creates, removes or tests <mailbox>.lock on behalf of a mail client.
It is meant to be installed setgid to the group owning the mail spool and
reports its outcome only through the exit status:

  0  success (try: lockable)
  1  error
  2  lock held by someone else and not stale
  3  try: locking is impossible
  4  try: locking requires -p

A mailbox named like a subcommand or starting with "-" must follow "--" or
be given with a directory, e.g. ./version.`,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: exactly one mailbox path is required", dotlock.ErrUsage)
			}
			return nil
		},
		Example: `
  # Lock /var/mail/alice, waiting for at most 5 unchanged polls
  dotlock /var/mail/alice

  # Lock in a spool directory only writable by the mail group, removing stale locks
  dotlock -p -f -r 10 /var/mail/alice

  # Ask whether locking would need -p
  dotlock -t /var/mail/alice; echo $?

  # Release the lock
  dotlock -u -p /var/mail/alice
`,
		// The setgid identity is left before touching anything the caller
		// controls, including the config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			snap = privilege.Capture()
			return privilege.New(snap, false,
				privilege.WithLogger(svcfields.WithSubsystem(baseLogger, "privilege")),
			).Drop()
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if r, err := cmd.Flags().GetInt("retries"); err == nil && r < 0 {
				return fmt.Errorf("%w: retries must be >= 0, got %d", dotlock.ErrUsage, r)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if _, err := loadConfigFile(v); err != nil {
				return err
			}
			cfg, err := bindConfig(v, cmd)
			if err != nil {
				return fmt.Errorf("%w: %w", dotlock.ErrUsage, err)
			}
			cfg.Force = flags.force
			cfg.Privileged = flags.privileged

			logger := baseLogger
			if level, ok := pslog.ParseLevel(strings.TrimSpace(v.GetString("log-level"))); ok {
				logger = logger.LogLevel(level)
			}
			logger, _ = svcfields.WithInvocation(logger)

			locker, err := dotlock.New(cfg, dotlock.WithLogger(logger), dotlock.WithSnapshot(snap))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			target := args[0]
			switch {
			case flags.try:
				result, err := locker.Try(ctx, target)
				if err != nil {
					return err
				}
				return result.Err()
			case flags.unlock:
				return locker.Unlock(ctx, target)
			default:
				return locker.Lock(ctx, target)
			}
		},
	}

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.StringP("config", "c", "", "path to YAML config file (defaults to $HOME/.dotlock/"+dotlock.DefaultConfigFileName+")")
	persistentFlags.String("log-level", dotlock.DefaultLogLevel, "log level written to stderr (trace, debug, info, warn, error)")

	f := cmd.Flags()
	f.BoolVarP(&flags.try, "try", "t", false, "only report whether locking could succeed")
	f.BoolVarP(&flags.force, "force", "f", false, "remove the lock file once it is considered stale")
	f.BoolVarP(&flags.unlock, "unlock", "u", false, "remove the lock file")
	f.BoolVarP(&flags.privileged, "privileged", "p", false, "use the setgid group for lock file operations")
	f.IntP("retries", "r", dotlock.DefaultRetries, "polls a held lock may stay unchanged before it is considered stale")
	f.String("privileged-group", "", "group (name or gid) used for -p instead of the setgid group")
	cmd.MarkFlagsMutuallyExclusive("try", "force", "unlock")

	for _, name := range []string{"config", "log-level", "retries", "privileged-group"} {
		flag := f.Lookup(name)
		if flag == nil {
			flag = persistentFlags.Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := v.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func bindConfig(v *viper.Viper, cmd *cobra.Command) (dotlock.Config, error) {
	var cfg dotlock.Config
	cfg.Retries = v.GetInt("retries")
	envSet := strings.TrimSpace(os.Getenv(envPrefix+"_RETRIES")) != ""
	cfg.RetriesSet = cmd.Flags().Changed("retries") || v.InConfig("retries") || envSet
	if cfg.Retries < 0 {
		return cfg, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	cfg.PrivilegedGroup = strings.TrimSpace(v.GetString("privileged-group"))
	return cfg, nil
}

func loadConfigFile(v *viper.Viper) (string, error) {
	cfgPath := strings.TrimSpace(v.GetString("config"))
	explicit := cfgPath != ""

	if cfgPath == "" {
		if dir, err := dotlock.DefaultConfigDir(); err == nil {
			cfgPath = filepath.Join(dir, dotlock.DefaultConfigFileName)
		}
	}
	if cfgPath == "" {
		return "", nil
	}

	expanded, err := pathutil.ExpandAbs(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}

	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", expanded, err)
	}
	return expanded, nil
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
