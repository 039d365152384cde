package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/auth"
	"github.com/oakwood-commons/crmx/internal/config"
	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
	"github.com/oakwood-commons/crmx/internal/ui"
	"github.com/oakwood-commons/crmx/pkg/logger"
	"github.com/oakwood-commons/crmx/pkg/settings"
)

// app is what a command needs once configuration and the session are loaded.
type app struct {
	cfg     *config.Config
	cfgPath string
	store   *session.Store
	sess    session.Session
	backend *gateway.HTTPClient
	offices *session.OfficeSelector

	closers []func()
}

// configLoader centralizes config loading so tests can point it at a
// throwaway user config directory.
type configLoader struct {
	userConfigDir string
	getenv        func(string) string
}

var cfgLoader = configLoader{}

func (l configLoader) load() (*config.Config, string, error) {
	return config.Load(config.Options{
		Path:          configFile,
		EnvFile:       envFile,
		Getenv:        l.getenv,
		UserConfigDir: l.userConfigDir,
	})
}

// loadApp reads the merged config and the stored session. With
// requireSession, a missing or expired sign-in is an error. Callers close
// the app when done.
func loadApp(cmd *cobra.Command, requireSession bool) (*app, error) {
	ctx := cmd.Context()
	lgr := logger.FromContext(ctx)

	cfg, path, err := cfgLoader.load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path != "" {
		lgr.V(1).Info("config loaded", "path", path)
	}

	dir := cfg.Session.Dir
	if dir == "" {
		if dir, err = session.DefaultDir(); err != nil {
			return nil, err
		}
	}
	store := session.NewStore(dir)
	sess, err := store.Load()
	if err != nil {
		return nil, err
	}
	if requireSession {
		if err := auth.CheckSession(sess, time.Now()); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:     cfg,
		cfgPath: path,
		store:   store,
		sess:    sess,
		offices: session.NewOfficeSelector(store),
		backend: gateway.NewHTTPClient(gateway.Options{
			BaseURL: cfg.Backend.URL,
			Token:   sess.Token,
			Timeout: cfg.Backend.Timeout.Std(),
			Paths:   cfg.Backend.Paths,
		}),
	}
	a.serveMetrics(ctx)
	return a, nil
}

// serveMetrics exposes /metrics while the command runs when an address is
// configured by flag or file.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.Addr
	if run, ok := settings.FromContext(ctx); ok && run.MetricsAddr != "" {
		addr = run.MetricsAddr
	}
	if addr == "" {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.closers = append(a.closers, cancel)
	go func() {
		if err := metrics.Serve(ctx, addr); err != nil {
			logger.FromContext(ctx).Error(err, "metrics server stopped", "addr", addr)
		}
	}()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// events connects the mutation broadcast; no URL means no-op.
func (a *app) events() (events.Publisher, events.Subscriber, error) {
	pub, sub, err := events.Connect(a.cfg.Events.NATSURL, a.cfg.Events.Prefix)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func() {
		_ = pub.Close()
		_ = sub.Close()
	})
	return pub, sub, nil
}

func (a *app) screen(name string) (model.Screen, error) {
	return a.cfg.Screen(name)
}

// reloadContext refreshes the selected office from the backend after
// mutations on screens that ask for it.
func (a *app) reloadContext(ctx context.Context) error {
	current := a.offices.Current()
	if current.IsZero() {
		return nil
	}
	rec, err := a.backend.Get(ctx, model.TabOffice, current.ID)
	if err != nil {
		if gateway.IsNotFound(err) {
			return a.offices.Clear(ctx)
		}
		return err
	}
	_, err = a.offices.Select(ctx, model.OfficeFromRecord(rec))
	return err
}

// controller builds a list controller for screen, reporting notices to n.
func (a *app) controller(screen model.Screen, pub events.Publisher, n listview.Notifier) (*listview.Controller, error) {
	return listview.New(listview.Options{
		Screen:        screen,
		Backend:       a.backend,
		PageSizes:     a.cfg.Paging.Sizes,
		PageSize:      a.cfg.Paging.Default,
		ActingUser:    func() string { return a.sess.UserID },
		Notifier:      n,
		Publisher:     pub,
		ReloadContext: a.reloadContext,
	})
}

// uiDeps wires the terminal UI to this app.
func (a *app) uiDeps(pub events.Publisher, sub events.Subscriber, noColor bool) (ui.Deps, error) {
	loc, err := a.cfg.History.Location()
	if err != nil {
		return ui.Deps{}, err
	}
	return ui.Deps{
		Screens:       a.cfg.Screens,
		Backend:       a.backend,
		PageSizes:     a.cfg.Paging.Sizes,
		PageSize:      a.cfg.Paging.Default,
		PollInterval:  a.cfg.Chat.PollInterval.Std(),
		DateLayout:    a.cfg.History.DateLayout,
		Location:      loc,
		Store:         a.store,
		Publisher:     pub,
		Subscriber:    sub,
		ActingUser:    func() string { return a.sess.UserID },
		SenderPhone:   func() string { return a.offices.Current().Phone },
		ReloadContext: a.reloadContext,
		Status:        a.status,
		NoColor:       noColor,
	}, nil
}

// status is the header line of the UI: the signed-in user and the office.
func (a *app) status() string {
	parts := []string{}
	if a.sess.Email != "" {
		parts = append(parts, a.sess.Email)
	}
	if office := a.offices.Current(); !office.IsZero() {
		parts = append(parts, office.Name)
	}
	return strings.Join(parts, " · ")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect crmx configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show the merged configuration or one dotted key",
	Example: `  crmx config get
  crmx config get chat.poll_interval
  crmx config get screens.leads.tabs -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := cfgLoader.load()
		if err != nil {
			return err
		}
		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		v, err := cfg.Lookup(key)
		if err != nil {
			return err
		}
		format := output
		if format == "table" {
			format = "yaml"
		}
		return printValue(cmd.OutOrStdout(), format, v)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, path, err := cfgLoader.load()
		if err != nil {
			return err
		}
		if path == "" {
			return errors.New("no config file found; using built-in defaults")
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() { //nolint:gochecknoinits
	configCmd.AddCommand(configGetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
