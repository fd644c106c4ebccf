package cli

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/fissio/fissio/internal/engine"
	"github.com/fissio/fissio/pkg/logger"
	"github.com/fissio/fissio/pkg/process"
	"github.com/fissio/fissio/pkg/types"
)

func newFactorCmd() *cobra.Command {
	var (
		trialLimit uint64
		workers    int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "factor <N>",
		Short: "Split N into two factors",
		Long: `Split a positive integer N into two factors p and q with p <= q and
p*q = N. Small factors are found by trial division; otherwise Pollard's p-1
and several Pollard's rho workers race until the first one succeeds or the
time budget runs out. A result of (1, N) means no factor was found and N is
probably prime.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, ok := new(big.Int).SetString(args[0], 10)
			if !ok {
				return fmt.Errorf("not a decimal integer: %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Flags override the config file
			if cmd.Flags().Changed("trial-limit") {
				cfg.TrialLimit = trialLimit
			}
			if cmd.Flags().Changed("workers") {
				cfg.RhoWorkers = workers
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = int(timeout.Milliseconds())
			}

			return runFactor(n, cfg)
		},
	}

	cmd.Flags().Uint64Var(&trialLimit, "trial-limit", 1000, "trial-division pre-filter bound")
	cmd.Flags().IntVar(&workers, "workers", 4, "number of Pollard rho workers")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall race budget")

	return cmd
}

func runFactor(n *big.Int, cfg *types.EngineConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.CreateLogger("", verbosity)

	// Ctrl-C cancels the in-flight factorization; the engine then winds the
	// workers down and returns.
	pm := process.NewManager(log)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)

	eng := engine.New(cfg, log)

	res, err := eng.FactorizeRequest(ctx, &types.FactorizationRequest{
		N:           n,
		TrialLimit:  cfg.TrialLimit,
		WorkerCount: cfg.RhoWorkers,
		Timeout:     cfg.TimeoutDuration(),
	})
	if err != nil {
		printError(fmt.Sprintf("Factorization failed: %v", err))
		return err
	}

	if res.ProbablePrime {
		printInfo(fmt.Sprintf("%s is probably prime (no factor within %s)", n, cfg.TimeoutDuration()))
		return nil
	}

	printSuccess(fmt.Sprintf("%s = %s x %s (%s, %.3fs)",
		n, res.Pair.P, res.Pair.Q, res.Method, res.Elapsed.Seconds()))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Fissio",
		Long:  `Print the version number of Fissio`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fissio v%s\n", version)
		},
	}
}
