package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/crmx/pkg/logger"
	"github.com/oakwood-commons/crmx/pkg/settings"
)

const defaultFallbackTermWidth = 120

var (
	output      string
	configFile  string
	envFile     string
	debug       bool
	noColor     bool
	metricsAddr string
)

type resizeTicker interface {
	C() <-chan time.Time
	Stop()
}

type realResizeTicker struct {
	*time.Ticker
}

func (t realResizeTicker) C() <-chan time.Time { return t.Ticker.C }

var (
	stdinIsPiped     = func() bool { stat, _ := os.Stdin.Stat(); return (stat.Mode() & os.ModeCharDevice) == 0 }
	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	openTerminalIOFn = openTerminalIO
	termGetSize      = term.GetSize
	newResizeTicker  = func(d time.Duration) resizeTicker { return realResizeTicker{Ticker: time.NewTicker(d)} }
	sendWindowSize   = func(p *tea.Program, msg tea.WindowSizeMsg) { p.Send(msg) }
)

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "crmx - real-estate CRM in the terminal",
	Long: `crmx is a terminal client for the real-estate CRM backend.

It lists leads, clients, offices and users with tabs, search, pagination
and bulk actions, shows call history grouped by day, and keeps WhatsApp
threads with clients up to date.

Run a list command with -i to open the interactive view.`,
	Example: `  crmx login
  crmx list leads --selected prospecto --search maria
  crmx list users --per-page all -o json
  crmx delete clients 65f1c0ffee --yes
  crmx chat +529991234567`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		// --debug maps to zap's debug level (-1); info otherwise.
		var level int8
		if debug {
			level = -1
		}
		run := settings.NewCliParams()
		run.MinLogLevel = level
		run.NoColor = noColor || os.Getenv("NO_COLOR") != ""
		run.Output = output
		run.ConfigFile = configFile
		run.EnvFile = envFile
		run.MetricsAddr = metricsAddr

		run.Interactive = cmd == listCmd && listInteractive
		if run.Interactive {
			redirectLogsForTUI()
		}
		lgr := logger.Get(level)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithLogger(ctx, lgr)
		ctx = settings.IntoContext(ctx, run)
		cmd.SetContext(ctx)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print crmx version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return nil
	},
}

// cliVersionString builds the version line used by `crmx version` and --version.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, go %s)",
		settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&output, "output", "o", "table", "output format: table|json|yaml")
	pf.StringVar(&configFile, "config-file", "", "path to a YAML or TOML config file")
	pf.StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env when present)")
	pf.BoolVar(&debug, "debug", false, "log debug detail")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while the command runs")

	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// detectTerminalSize returns the best-effort terminal width/height by probing
// stdout, stderr, and stdin, then falling back to $COLUMNS.
func detectTerminalSize() (int, int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := termGetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 0
		}
	}
	return defaultFallbackTermWidth, 0
}

// getProgramOptions reopens the terminal when stdin is piped so the UI still
// receives keys and resize events. The returned cleanup closes what it opened.
func getProgramOptions() ([]tea.ProgramOption, func()) {
	cleanup := func() {}
	if !stdinIsPiped() {
		return nil, cleanup
	}

	ttyIn, ttyOut, err := openTerminalIOFn()
	if err != nil {
		// No /dev/tty (CI): keep piped stdin, arrow keys and resize will not work.
		return nil, cleanup
	}
	cleanup = func() {
		_ = ttyIn.Close()
		if ttyOut != nil && ttyOut != ttyIn {
			_ = ttyOut.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	opts := []tea.ProgramOption{tea.WithInput(ttyIn)}
	if ttyOut != nil {
		opts = append(opts, tea.WithOutput(ttyOut), withTTYResizeWatcher(ctx, ttyOut))
	}
	return opts, func() {
		cancel()
		cleanup()
	}
}

func openTerminalIO() (*os.File, *os.File, error) {
	in, out := terminalDeviceNames(runtime.GOOS)

	input, err := os.OpenFile(in, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	if out == "" || out == in {
		return input, input, nil
	}
	output, err := os.OpenFile(out, os.O_RDWR, 0)
	if err != nil {
		return input, nil, err
	}
	return input, output, nil
}

func terminalDeviceNames(goos string) (input string, output string) {
	if goos == "windows" {
		return "CONIN$", "CONOUT$"
	}
	return "/dev/tty", "/dev/tty"
}

// withTTYResizeWatcher polls the terminal size and sends resize messages when
// signals are unreliable (piped stdin on Windows). It stops with ctx.
func withTTYResizeWatcher(ctx context.Context, out *os.File) tea.ProgramOption {
	return func(p *tea.Program) {
		if ctx == nil || out == nil {
			return
		}
		go func() {
			t := newResizeTicker(250 * time.Millisecond)
			defer t.Stop()

			lastW, lastH := 0, 0
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C():
					w, h, err := termGetSize(int(out.Fd()))
					if err != nil {
						continue
					}
					if w == lastW && h == lastH {
						continue
					}
					lastW, lastH = w, h
					sendWindowSize(p, tea.WindowSizeMsg{Width: w, Height: h})
				}
			}
		}()
	}
}
