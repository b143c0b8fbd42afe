package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/internal/logging"
	"github.com/arthur-debert/shopdata/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLI is the shopdata command tree with its own viper instance.
type CLI struct {
	rootCmd *cobra.Command
	v       *viper.Viper
	out     io.Writer
	errOut  io.Writer

	cfg       Config
	logger    *slog.Logger
	logCloser io.Closer
	now       func() time.Time
}

// NewCLI builds the command tree writing to out and errOut.
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the command line in args.
func (cli *CLI) Execute(ctx context.Context, args []string) error {
	cli.rootCmd.SetArgs(args)
	err := cli.rootCmd.ExecuteContext(ctx)
	if closeErr := cli.closeLogging(); err == nil {
		err = closeErr
	}
	return err
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "shopdata",
		Short: "shopdata - JSON-file backed shop API and data browser",
		Long: `shopdata serves a small shop API from a directory of JSON files and
lets you query and browse those files from the terminal.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (SHOPDATA_*)
3. Configuration file
4. Defaults

Configuration File Discovery:
  --config /path/to/shopdata.yaml       # Explicit file
  SHOPDATA_CONFIG=/path/to/shopdata.yaml
  ./shopdata.yaml                       # Current directory
  ~/.shopdata/shopdata.yaml             # User directory
  /etc/shopdata/shopdata.yaml           # System directory

Examples:
  # Write the sample dataset and serve it
  shopdata seed --data-dir ./data
  shopdata serve --data-dir ./data --watch

  # Query a resource
  shopdata query orders status=shipped --sort total-desc --limit 5

  # Browse a record of a file
  shopdata inspect customers.json --search eleanor --expand preferences`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			if err := setupViperConfig(cli.v, configFile); err != nil {
				return err
			}
			_ = cli.v.BindPFlags(cmd.Flags())

			cfg, err := loadConfig(cli.v)
			if err != nil {
				return err
			}
			cli.cfg = cfg
			if err := cli.initLogging(); err != nil {
				return err
			}
			cli.logger.Debug("command started", "command", cmd.CommandPath(), "flags", changedFlags(cmd.Flags()))
			return nil
		},
	}
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)
	cli.addGlobalFlags()
}

func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.String("config", "", "Config file (default: shopdata.yaml in ., $HOME/.shopdata, /etc/shopdata)")
	flags.StringP("data-dir", "d", "data", "Directory holding the JSON data files")
	flags.StringP("format", "f", "table", "Output format (table|json|yaml)")
	flags.String("locale", inspect.DefaultLocale, "Locale for numbers and dates in the data browser")

	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.String("log-format", "text", "Log format (text|json)")
	flags.String("log-file", "", "Also write JSON logs to this file")
}

func (cli *CLI) addCommands() {
	cli.addServeCommand()
	cli.addQueryCommand()
	cli.addInspectCommand()
	cli.addFilesCommand()
	cli.addSeedCommand()
	cli.addConfigCommand()
}

func (cli *CLI) initLogging() error {
	logger, closer, err := logging.New(logging.Options{
		Level:  cli.cfg.LogLevel,
		Format: cli.cfg.LogFormat,
		File:   cli.cfg.LogFile,
		Output: cli.errOut,
	})
	if err != nil {
		return NewConfigError("set up logging", err.Error(), suggest.CheckPerms)
	}
	cli.logger = logger
	cli.logCloser = closer
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"config_file", cli.v.ConfigFileUsed(),
		"data_dir", cli.cfg.DataDir,
		"format", cli.cfg.Format)
	return nil
}

func (cli *CLI) closeLogging() error {
	if cli.logCloser == nil {
		return nil
	}
	err := cli.logCloser.Close()
	cli.logCloser = nil
	return err
}

// changedFlags lists the flags set on the command line as name=value.
func changedFlags(fs *pflag.FlagSet) []string {
	var out []string
	fs.Visit(func(f *pflag.Flag) {
		out = append(out, f.Name+"="+f.Value.String())
	})
	return out
}

func (cli *CLI) dataDir() *storage.DataDir {
	return storage.NewDataDir(cli.cfg.DataDir, storage.WithLogger(cli.logger))
}
