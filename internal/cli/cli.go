package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sasanktumpati/tell/internal/config"
	"github.com/sasanktumpati/tell/internal/providers"
	"github.com/sasanktumpati/tell/internal/render"
)

// ErrUsage marks errors caused by invalid command-line usage.
var ErrUsage = errors.New("usage")

// App holds the streams and backend endpoint one invocation runs against.
type App struct {
	stdout   io.Writer
	stderr   io.Writer
	endpoint providers.Endpoint
	log      *slog.Logger
}

type options struct {
	configPath string
	switchTo   string
	model      string
	listModels bool
	debug      bool
}

// Run executes the tell CLI with the provided process arguments and streams.
func Run(args []string, stdout io.Writer, stderr io.Writer) error {
	return New(stdout, stderr, providers.DefaultEndpoint()).Execute(context.Background(), args)
}

// New returns an App writing to stdout and stderr and generating against endpoint.
func New(stdout, stderr io.Writer, endpoint providers.Endpoint) *App {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &App{
		stdout:   stdout,
		stderr:   stderr,
		endpoint: endpoint,
		log:      slog.New(slog.DiscardHandler),
	}
}

// Execute parses args and runs the selected action.
func (a *App) Execute(ctx context.Context, args []string) error {
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}
	cmd := a.command()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (a *App) command() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "tell [flags] <prompt...>",
		Short:         "Stream an answer from a local Ollama model",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dispatch(cmd, opts, args)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetVersionTemplate("tell v{{.Version}}\n")
	cmd.SetHelpFunc(func(*cobra.Command, []string) {
		printHelp(a.stdout, opts.configPath)
	})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	flags := cmd.Flags()
	// Everything after the first word is prompt text.
	flags.SetInterspersed(false)
	flags.StringVar(&opts.switchTo, "switch", "", "persist `model` as the active model")
	flags.StringVarP(&opts.model, "model", "m", "", "use `model` for this prompt only")
	flags.BoolVar(&opts.listModels, "models", false, "list models installed on the server")
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file `path` (or TELL_CONFIG)")
	flags.BoolVar(&opts.debug, "debug", false, "log debug information to stderr")
	return cmd
}

func (a *App) dispatch(cmd *cobra.Command, opts *options, args []string) error {
	if opts.debug {
		a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	ctx := cmd.Context()

	switch {
	case cmd.Flags().Changed("switch"):
		if len(args) > 0 {
			return usageError("--switch takes exactly one model name, got extra arguments %q", strings.Join(args, " "))
		}
		return a.runSwitch(opts.configPath, opts.switchTo)
	case opts.listModels:
		if len(args) > 0 {
			return usageError("--models takes no arguments")
		}
		return a.runModels(ctx, opts)
	case len(args) == 0:
		printHelp(a.stdout, opts.configPath)
		return nil
	default:
		return a.runTell(ctx, opts, strings.Join(args, " "))
	}
}

func (a *App) runSwitch(configPath, model string) error {
	if strings.TrimSpace(model) == "" || strings.HasPrefix(model, "-") {
		return usageError("--switch requires a model name")
	}

	path, cfg, err := a.loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Model = model
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	a.log.Debug("model switched", "model", model, "config", path)
	fmt.Fprintf(a.stdout, "Switched to model: %s\n", cfg.Model)
	return nil
}

func (a *App) runTell(ctx context.Context, opts *options, prompt string) error {
	_, cfg, err := a.loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	model := cfg.Model
	if m := strings.TrimSpace(opts.model); m != "" {
		model = m
	}

	client, err := providers.New(model, a.endpoint)
	if err != nil {
		return err
	}
	a.log.Debug("generating", "model", client.Model(), "prompt_bytes", len(prompt))

	stop := startSpinner(isTerminalWriter(a.stderr), a.stderr, "Thinking")
	defer stop()

	stream, err := client.GenerateStream(ctx, prompt, nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	styles := render.DefaultStyles(lipgloss.NewRenderer(a.stdout))
	sink := render.NewSink(a.stdout, a.stderr, styles, a.log)
	err = sink.Consume(beforeFirst(stream.All(), stop))
	stop()
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *App) runModels(ctx context.Context, opts *options) error {
	_, cfg, err := a.loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	client, err := providers.New(cfg.Model, a.endpoint)
	if err != nil {
		return err
	}

	models, err := client.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(a.stdout, "no models installed; pull one with `ollama pull <model>`")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "CURRENT\tMODEL\tSIZE")
	for _, m := range models {
		marker := ""
		if m.Name == cfg.Model {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, m.Name, humanize.Bytes(uint64(max(m.Size, 0))))
	}
	return tw.Flush()
}

func (a *App) loadConfig(override string) (string, *config.Config, error) {
	path, err := config.ResolvePath(override)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	a.log.Debug("config loaded", "path", path, "model", cfg.Model)
	return path, cfg, nil
}

// beforeFirst calls fn once, right before seq yields its first item.
func beforeFirst[K, V any](seq iter.Seq2[K, V], fn func()) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		first := true
		for k, v := range seq {
			if first {
				fn()
				first = false
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...)
}
