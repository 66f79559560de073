// Command switchboard routes a prompt to a tiered model and drives the
// tool-calling loop against the local workspace.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ajmitchell/switchboard/chatloop"
	"github.com/ajmitchell/switchboard/config"
	"github.com/ajmitchell/switchboard/modelkit"
	"github.com/ajmitchell/switchboard/router"
	"github.com/ajmitchell/switchboard/tools"
)

var (
	flagConfig    string
	flagWorkspace string
	flagModel     string
	flagYes       bool
	flagVerbose   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "switchboard [prompt]",
	Short: "Route a prompt to a tiered model and run the tool-calling loop",
	Long: `switchboard scores a prompt's complexity, picks a free or premium
model accordingly, and drives a bounded tool-calling conversation: the
model can read and edit files, run commands, and inspect the workspace,
with side-effecting calls held for your approval.

The prompt comes from the argument list, or from stdin when absent.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stderr"}
		if flagVerbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	RunE: runPrompt,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace directory (default: cwd)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "force a catalog model, bypassing tier routing")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "approve all tool confirmations without prompting")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagWorkspace != "" {
		cfg.Workspace = flagWorkspace
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return fmt.Errorf("no prompt given")
	}

	catalog := modelkit.DefaultCatalog()
	info, err := pickModel(catalog, cfg, prompt)
	if err != nil {
		return err
	}

	provider := info.Provider
	if cfg.Provider != "" {
		provider = cfg.Provider
	}
	model, err := modelkit.NewGollmModel(provider, info.ID)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", provider, err)
	}

	reg := chatloop.NewRegistry()
	tools.RegisterAll(reg, tools.NewLocalWorkspace(cfg.Workspace), tools.Options{
		DefaultCommandTimeout: cfg.CommandTimeout,
		MaxCommandTimeout:     cfg.MaxCommandTimeout,
		CharLimits:            cfg.ToolCharLimits,
	})

	loop := chatloop.New(model, reg, newTerminalApprover(flagYes),
		chatloop.WithLogger(logger),
		chatloop.WithMaxRounds(cfg.MaxRounds),
	)
	defer loop.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := chatloop.NewWriterSink(os.Stdout)

	var g errgroup.Group
	g.Go(func() error {
		for ev := range loop.Events() {
			switch ev.Kind {
			case chatloop.EventToolCallStart:
				fmt.Fprintf(os.Stderr, "⋯ %v\n", ev.Data["tool"])
			case chatloop.EventRoundBudget:
				fmt.Fprintln(os.Stderr, "(stopped: round budget exhausted)")
			}
		}
		return nil
	})

	runErr := loop.Run(ctx, prompt, sink)
	loop.Close()
	_ = g.Wait()

	fmt.Fprintln(os.Stdout)
	return runErr
}

// pickModel applies the model override or routes by complexity tier.
func pickModel(catalog *modelkit.Catalog, cfg config.Config, prompt string) (modelkit.ModelInfo, error) {
	if cfg.Model != "" {
		info := catalog.Lookup(cfg.Model)
		if info == nil {
			return modelkit.ModelInfo{}, fmt.Errorf("unknown model %q", cfg.Model)
		}
		return *info, nil
	}

	rt := router.New(catalog, cfg.RouterThreshold, logger)
	decision, err := rt.Route(prompt)
	if err != nil {
		return modelkit.ModelInfo{}, err
	}
	if decision.Downgraded {
		fmt.Fprintf(os.Stderr, "(premium tier requested, serving %s from the free tier)\n", decision.Model.ID)
	} else {
		fmt.Fprintf(os.Stderr, "(%s tier: %s)\n", decision.Tier, decision.Model.ID)
	}
	return decision.Model, nil
}

// terminalApprover prompts on the controlling terminal for each gated
// tool call. With yesAll set it approves everything.
type terminalApprover struct {
	yesAll bool
	in     *bufio.Reader
	out    io.Writer
}

func newTerminalApprover(yesAll bool) *terminalApprover {
	return &terminalApprover{
		yesAll: yesAll,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stderr,
	}
}

func (a *terminalApprover) Approve(ctx context.Context, token chatloop.InvocationToken, req chatloop.ApprovalRequest) (bool, error) {
	if a.yesAll {
		return true, nil
	}

	fmt.Fprintf(a.out, "\n%s\n%s\n", req.Confirmation.Title, req.Confirmation.Message)
	if req.Confirmation.Preview != "" {
		fmt.Fprintf(a.out, "%s\n", req.Confirmation.Preview)
	}
	fmt.Fprintf(a.out, "Approve? [y/N] ")

	answerCh := make(chan string, 1)
	go func() {
		line, _ := a.in.ReadString('\n')
		answerCh <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answerCh:
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
