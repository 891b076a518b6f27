package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ghnb/internal/bootstrap"
	executiondto "ghnb/internal/modules/execution/dto"
	notebookdomain "ghnb/internal/modules/notebook/domain"
	"ghnb/internal/platform/config"
	"ghnb/internal/platform/logging"
)

const defaultAuthTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	flags      *pflag.FlagSet
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "ghnb",
		Short:         "GitHub GraphQL notebooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default <user config dir>/ghnb/config.yaml)")
	root.PersistentFlags().String("log_level", logging.DefaultLevel, "log level: debug|info|warn|error")
	root.PersistentFlags().String("endpoint", config.DefaultEndpoint, "GitHub GraphQL endpoint")
	root.PersistentFlags().StringSlice("scopes", config.DefaultScopes, "OAuth scopes to request")
	g.flags = root.PersistentFlags()

	root.AddCommand(newNewCmd(g))
	root.AddCommand(newCatCmd(g))
	root.AddCommand(newAddCmd(g))
	root.AddCommand(newRunCmd(g))
	root.AddCommand(newExportCmd(g))
	root.AddCommand(newHistoryCmd(g))
	root.AddCommand(newTUICmd(g))
	root.AddCommand(newAuthCmd(g))
	return root
}

func loadSource(g *globalFlags) (*config.Source, *zap.Logger, error) {
	source, err := config.New(config.Options{ConfigFile: g.configFile, Flags: g.flags})
	if err != nil {
		return nil, nil, err
	}
	cfg, err := source.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return source, logger, nil
}

func loadApp(g *globalFlags, authTimeout time.Duration) (*bootstrap.App, func(), error) {
	source, logger, err := loadSource(g)
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.New(source, bootstrap.Options{Logger: logger, AuthTimeout: authTimeout})
	if err != nil {
		logging.Sync(logger)
		return nil, nil, err
	}
	closeFn := func() {
		if err := app.Close(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
		logging.Sync(logger)
	}
	return app, closeFn, nil
}

func notebookPath(arg string) string {
	if strings.HasSuffix(arg, notebookdomain.FileExtension) {
		return arg
	}
	return arg + notebookdomain.FileExtension
}

func newNewCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new <file>",
		Short: "Create a notebook with one empty GraphQL cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			out, err := app.NotebookCLI.Create(cmd.Context(), notebookPath(args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", out.Path)
			return nil
		},
	}
}

func newCatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file>",
		Short: "Print a notebook's cells",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			nb, err := app.NotebookCLI.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, cell := range nb.Cells {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "── [%d] %s\n%s\n", cell.Index, cell.Kind, cell.Content)
			}
			return nil
		},
	}
}

func newAddCmd(g *globalFlags) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "add <file> <text|->",
		Short: "Append a cell; - reads the cell from stdin",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args[1:], " ")
			if content == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = strings.TrimRight(string(raw), "\n")
			}
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			out, err := app.NotebookCLI.AppendCell(cmd.Context(), args[0], markdown, content)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d cells\n", out.Path, len(out.Cells))
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "append a markdown cell instead of a GraphQL cell")
	return cmd
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var cells []int
	var authTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a notebook's GraphQL cells in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := loadApp(g, authTimeout)
			if err != nil {
				return err
			}
			defer closeApp()
			w := cmd.OutOrStdout()
			out, err := app.ExecutionCLI.Run(cmd.Context(), args[0], cells, func(r executiondto.CellResult) {
				mark := "✓"
				if !r.Success {
					mark = "✗"
				}
				_, _ = fmt.Fprintf(w, "── [%d] %s %s\n%s\n", r.CellIndex, mark, r.Duration().Round(time.Millisecond), r.Output)
			})
			if err != nil {
				return err
			}
			if out.Failed > 0 {
				return fmt.Errorf("%d of %d cells failed", out.Failed, len(out.Results))
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&cells, "cell", nil, "cell index to run (repeatable; default all code cells)")
	cmd.Flags().DurationVar(&authTimeout, "auth_timeout", defaultAuthTimeout, "how long to wait for GitHub sign-in")
	return cmd
}

func newExportCmd(g *globalFlags) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a notebook as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			out, err := app.NotebookCLI.Export(cmd.Context(), args[0], outPath)
			if err != nil {
				return err
			}
			verb := "exported"
			if out.Replaced {
				verb = "updated"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d cells)\n", verb, out.Path, out.Cells)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default <notebook name>.md next to the notebook)")
	return cmd
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "Show recent cell runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := app.ExecutionCLI.History(cmd.Context(), path, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs")
				return nil
			}
			for _, e := range entries {
				result := "ok"
				if !e.Success {
					result = "failed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tcell %d\t%s\t%s\n",
					humanize.Time(e.StartedAt), e.Notebook, e.CellIndex, result, e.EndedAt.Sub(e.StartedAt).Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func newTUICmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui <file>",
		Short: "Open a notebook in the terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, logger, err := loadSource(g)
			if err != nil {
				return err
			}
			defer logging.Sync(logger)
			// Log lines would tear the alternate screen.
			return bootstrap.RunTUI(source, bootstrap.Options{Logger: logging.Discard()}, args[0])
		},
	}
}

func newAuthCmd(g *globalFlags) *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Manage the GitHub session"}

	auth.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Sign in with the GitHub device flow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			session, err := app.AuthCLI.Login(cmd.Context(), app.Config.Scopes)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (scopes: %s)\n", session.Account, strings.Join(session.Scopes, ", "))
			return nil
		},
	})

	auth.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove stored GitHub sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			out, err := app.AuthCLI.Logout(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d session(s)\n", out.Removed)
			return nil
		},
	})

	auth.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show stored GitHub sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := loadApp(g, 0)
			if err != nil {
				return err
			}
			defer closeApp()
			status, err := app.AuthCLI.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if status.TokenFromEnv {
				_, _ = fmt.Fprintln(w, "using token from configuration or environment")
			}
			if len(status.Sessions) == 0 {
				if !status.TokenFromEnv {
					return errors.New("not signed in; run `ghnb auth login`")
				}
				return nil
			}
			for _, s := range status.Sessions {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\tsince %s\n", s.ProviderID, s.Account, strings.Join(s.Scopes, ","), humanize.Time(s.CreatedAt))
			}
			return nil
		},
	})
	return auth
}
