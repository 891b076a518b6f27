package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	authinadapter "ghnb/internal/modules/auth/adapter/in"
	authoutadapter "ghnb/internal/modules/auth/adapter/out"
	authdomain "ghnb/internal/modules/auth/domain"
	authout "ghnb/internal/modules/auth/port/out"
	authservice "ghnb/internal/modules/auth/service"
	authusecase "ghnb/internal/modules/auth/usecase"
	executioninadapter "ghnb/internal/modules/execution/adapter/in"
	executionoutadapter "ghnb/internal/modules/execution/adapter/out"
	executionservice "ghnb/internal/modules/execution/service"
	executionusecase "ghnb/internal/modules/execution/usecase"
	notebookinadapter "ghnb/internal/modules/notebook/adapter/in"
	notebookoutadapter "ghnb/internal/modules/notebook/adapter/out"
	notebookservice "ghnb/internal/modules/notebook/service"
	notebookusecase "ghnb/internal/modules/notebook/usecase"
	"ghnb/internal/platform/clock"
	"ghnb/internal/platform/config"
	"ghnb/internal/platform/id"
	"ghnb/internal/platform/logging"
	uiapp "ghnb/internal/ui/app"
)

type Options struct {
	Logger *zap.Logger
	// Prompter shows device codes; nil prints them to PromptOut.
	Prompter  authout.Prompter
	PromptOut io.Writer
	// AuthTimeout bounds how long a run waits for sign-in; zero waits forever.
	AuthTimeout time.Duration
	HTTPClient  *http.Client
}

type App struct {
	NotebookCLI  notebookinadapter.CLIHandler
	AuthCLI      authinadapter.CLIHandler
	ExecutionCLI executioninadapter.CLIHandler

	Config config.Config
	cancel context.CancelFunc
}

// Close stops background watchers and closes the run history.
func (a *App) Close() error {
	a.cancel()
	return a.ExecutionCLI.Close()
}

func New(source *config.Source, opts Options) (*App, error) {
	cfg, err := source.Load()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	clk := clock.System{}
	ids := id.UUID{}

	notebookUC := notebookusecase.NewInteractor(
		notebookservice.NewCodec(),
		notebookservice.NewExportService(clk),
		notebookoutadapter.NewFileNotebookStore(),
	)

	prompter := opts.Prompter
	if prompter == nil {
		out := opts.PromptOut
		if out == nil {
			out = os.Stderr
		}
		prompter = authoutadapter.NewWriterPrompter(out)
	}
	authSvc := authservice.NewAuthService(
		clk,
		ids,
		authoutadapter.NewYAMLTokenStore(cfg.TokenStorePath, logger),
		authoutadapter.NewOAuthDeviceAuthorizer(authoutadapter.DeviceAuthorizerOptions{
			ClientID:   cfg.ClientID,
			Endpoint:   authoutadapter.GitHubEndpoint,
			UserURL:    authoutadapter.UserURLFor(cfg.Endpoint),
			HTTPClient: opts.HTTPClient,
		}),
		prompter,
		authoutadapter.NewOSExternalLauncher(),
		authservice.Options{EnvToken: cfg.Token, OpenBrowser: cfg.OpenBrowser},
		logger,
	)
	authUC := authusecase.NewInteractor(authSvc)

	ctx, cancel := context.WithCancel(context.Background())
	if err := authSvc.WatchStore(ctx); err != nil {
		logger.Warn("token store changes from other processes will not be noticed", zap.Error(err))
	}

	runs, err := executionoutadapter.NewSQLiteRunStore(cfg.HistoryPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new run store: %w", err)
	}
	var base http.RoundTripper
	if opts.HTTPClient != nil {
		base = opts.HTTPClient.Transport
	}
	controller := executionservice.NewController(
		executionoutadapter.NewAuthSessionAdapter(authUC),
		executionoutadapter.NewHTTPClientFactoryBuilder(executionoutadapter.ClientOptions{
			Endpoint:       cfg.Endpoint,
			StripUserAgent: cfg.StripUserAgent,
			Base:           base,
		}),
		clk,
		executionservice.ControllerOptions{Scopes: cfg.Scopes, AuthTimeout: opts.AuthTimeout},
		logger,
	)
	executionUC := executionusecase.NewInteractor(
		controller,
		executionoutadapter.NewNotebookSourceAdapter(notebookUC),
		runs,
		ids,
		logger,
	)

	err = source.OnChange(ctx, func(next config.Config) {
		if executionUC.SetScopes(next.Scopes) {
			logger.Info("scopes changed in config; session reset", zap.Strings("scopes", next.Scopes))
		}
	})
	if err != nil {
		logger.Warn("config changes will not be noticed", zap.Error(err))
	}

	return &App{
		NotebookCLI:  notebookinadapter.NewCLIHandler(notebookUC),
		AuthCLI:      authinadapter.NewCLIHandler(authUC),
		ExecutionCLI: executioninadapter.NewCLIHandler(executionUC),
		Config:       cfg,
		cancel:       cancel,
	}, nil
}

// RunTUI opens path in the notebook view. Device codes from an interactive
// sign-in are shown in the status bar instead of stderr.
func RunTUI(source *config.Source, opts Options, path string) error {
	var program *tea.Program
	started := make(chan struct{})
	opts.Prompter = authoutadapter.FuncPrompter(func(ctx context.Context, code authdomain.DeviceCode) {
		select {
		case <-started:
		case <-ctx.Done():
			return
		}
		program.Send(uiapp.DeviceCodeMsg{UserCode: code.UserCode, VerificationURI: code.VerificationURI})
	})
	app, err := New(source, opts)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	model := uiapp.NewModel(path, app.NotebookCLI, app.ExecutionCLI)
	program = tea.NewProgram(model, tea.WithAltScreen())
	close(started)
	_, err = program.Run()
	return err
}
