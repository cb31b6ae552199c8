// Package cmd - quotectl commands
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quote_backend/internal/app/di"
	"quote_backend/internal/platform/config"
	"quote_backend/internal/platform/logger"
)

// options はサブコマンドが共有するフラグと設定です。
type options struct {
	envFile string
	verbose bool
	cfg     config.Config
}

// NewRootCmd builds the quotectl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Quote refresh backend - operations CLI",
		Long: `Quote refresh backend - operations CLI

Commands:
    refresh     run one refresh cycle now
    seed        register TRACKED_SYMBOLS / SYMBOLS_FILE
    symbols     list, add, activate or deactivate symbols
    token       mint an admin JWT
    history     print stored samples of a symbol
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "env file to load (default is .env)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRefreshCmd(opts),
		newSeedCmd(opts),
		newSymbolsCmd(opts),
		newTokenCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// Execute ルートコマンドを実行します。Ctrl+C で実行中のサイクルは銘柄の区切りで止まります。
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) init() error {
	if o.envFile != "" {
		config.LoadDotEnv(o.envFile)
	} else {
		config.LoadDotEnv()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	// CLI はログファイルに書かない
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	o.cfg = cfg
	return nil
}

// withContainer は DB と各コンポーネントを組み立てて fn を実行します。
func (o *options) withContainer(ctx context.Context, fn func(c *di.Container) error) error {
	c, err := di.Build(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
