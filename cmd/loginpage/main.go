package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/MamBoota/LoginPage/activitymap"
	"github.com/MamBoota/LoginPage/httpapi"
	"github.com/MamBoota/LoginPage/internal/config"
	"github.com/MamBoota/LoginPage/web"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  loginpage.Logger
	monitor *loginpage.ConnectivityMonitor
	api     loginpage.API
	tokens  *loginpage.TokenIssuer
	prober  *httpapi.Prober
	pages   *web.Handler
	srv     *fiber.App
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := &App{
		config:  cfg,
		logger:  newLogger(cfg.Debug),
		monitor: loginpage.NewConnectivityMonitor(true),
	}

	if cfg.Debug {
		printConfig(os.Stdout, cfg)
	}

	if err := WithAPI(app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(app); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go app.pages.RunSweeper(ctx, cfg.SweepInterval)
	if app.prober != nil {
		go app.prober.Run(ctx)
	}

	go func() {
		app.logger.Info("listening on %s", cfg.Addr)
		if err := app.srv.Listen(cfg.Addr); err != nil {
			app.logger.Error("listen: %v", err)
		}
	}()

	sig := WaitExitSignal()
	app.logger.Info("received %s, shutting down", sig)

	cancel()
	if err := app.srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
		app.logger.Error("shutdown: %v", err)
	}
	app.pages.Close()
}

// WithAPI builds the flow backend: the in-process mock or a remote client
func WithAPI(app *App) error {
	cfg := app.config

	if cfg.Remote() {
		client := httpapi.NewClient(cfg.APIURL,
			httpapi.WithRetries(cfg.APIRetries, 250*time.Millisecond),
			httpapi.WithClientLogger(app.logger),
		)
		app.api = client
		app.prober = httpapi.NewProber(client, app.monitor,
			httpapi.WithProbeInterval(cfg.ProbeInterval),
			httpapi.WithProberLogger(app.logger),
		)
		return nil
	}

	api, err := loginpage.NewMockAPI(
		loginpage.WithMockDelays(cfg.LoginDelay, cfg.VerifyDelay, cfg.RequestDelay),
		loginpage.WithMockConnectivity(app.monitor),
		loginpage.WithMockTokenIssuer(loginpage.NewTokenIssuer([]byte(cfg.SigningKey), cfg.TokenTTL)),
		loginpage.WithMockLogger(app.logger),
	)
	if err != nil {
		return fmt.Errorf("mock api: %w", err)
	}

	app.api = api
	app.tokens = api.Tokens()
	return nil
}

// WithHTTPServer mounts the pages and, in mock mode, the JSON api
func WithHTTPServer(app *App) error {
	engine, err := web.NewEngine()
	if err != nil {
		return err
	}

	app.srv = fiber.New(fiber.Config{
		AppName:               "loginpage",
		DisableStartupMessage: true,
		Views:                 engine,
	})

	if !app.config.Remote() {
		httpapi.NewServer(app.api,
			httpapi.WithDebug(app.config.Debug),
			httpapi.WithTokenParser(app.tokens),
			httpapi.WithServerLogger(app.logger),
		).Register(app.srv)
	}

	app.pages = web.New(app.newFlow,
		web.WithVisitorTTL(app.config.VisitorTTL),
		web.WithCSRFKey([]byte("csrf:"+app.config.SigningKey)),
		web.WithDebug(app.config.Debug),
		web.WithLogger(app.logger),
	)
	app.pages.Register(app.srv)

	return nil
}

func (a *App) newFlow() *loginpage.Flow {
	return loginpage.NewFlow(a.api,
		loginpage.WithFlowConnectivity(a.monitor),
		loginpage.WithFlowLogger(a.logger),
		loginpage.WithFlowActivitySink(loginpage.ActivitySinkFunc(a.recordActivity)),
		loginpage.WithFlowTwoFactorOptions(
			loginpage.WithCodeExpiration(a.config.CodeExpiration),
		),
	)
}

func (a *App) recordActivity(_ context.Context, event loginpage.ActivityEvent) error {
	a.logger.Info("activity %s", print.MaybePrettyJSON(activitymap.Normalize(event)))
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "============")
	fmt.Fprintln(w, print.MaybePrettyJSON(cfg))
	fmt.Fprintln(w, "============")
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

type quietLogger struct {
	loginpage.Logger
}

func (quietLogger) Debug(string, ...any) {}

func newLogger(debug bool) loginpage.Logger {
	if debug {
		return loginpage.DefaultLogger()
	}
	return quietLogger{loginpage.DefaultLogger()}
}
