package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/antigravity-dev/ember/internal/config"
	"github.com/antigravity-dev/ember/internal/reasonerclient"
	"github.com/antigravity-dev/ember/internal/reasonerclient/dockerreasoner"
	"github.com/antigravity-dev/ember/internal/reasonerclient/inmemfake"
	"github.com/antigravity-dev/ember/internal/rigd"
	"github.com/antigravity-dev/ember/internal/store"
	"github.com/antigravity-dev/ember/internal/timeframe"
	"github.com/antigravity-dev/ember/internal/workflowrunner"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	configPath := flag.String("config", "ember.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	item := flag.String("item", "", "item to acquire")
	count := flag.Int("count", 1, "quantity to acquire")
	inventoryFlag := flag.String("inventory", "", "comma-separated item=count pairs describing current inventory")
	nearbyBlocksFlag := flag.String("nearby-blocks", "", "comma-separated nearby block types")
	requiredBucket := flag.String("required-bucket", "", "require a specific timeframe bucket")
	setEpsilonPpm := flag.String("set-epsilon-ppm", "", "set [risk].epsilon_ppm in config and exit")
	flag.Parse()

	if epsilon := strings.TrimSpace(*setEpsilonPpm); epsilon != "" {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		changed, err := setEpsilonPpmInConfigFile(*configPath, epsilon)
		if err != nil {
			logger.Error("failed to set epsilon_ppm in config", "config", *configPath, "error", err)
			os.Exit(1)
		}
		logger.Info("set-epsilon-ppm complete", "config", *configPath, "changed", changed, "epsilon_ppm", epsilon)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		logger.Error("failed to load config", "config", *configPath, "error", err)
		os.Exit(1)
	}

	logger := configureLogger(cfg.General.LogLevel, *dev)
	slog.SetDefault(logger)
	logger.Info("ember-plan starting", "config", *configPath)

	if strings.TrimSpace(*item) == "" {
		logger.Error("-item is required")
		os.Exit(1)
	}

	st, err := store.New(cfg.Store.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.Store.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	priors := rigd.NewPriorStore()
	if persisted, err := st.LoadPriors(); err != nil {
		logger.Warn("failed to load persisted priors, starting cold", "error", err)
	} else {
		for _, p := range persisted {
			priors.Seed(rigd.PriorKey{Item: p.Item, Strategy: rigd.Strategy(p.Strategy), ContextToken: p.ContextToken},
				rigd.PriorEntry{SuccessRate: p.SuccessRate, SampleCount: p.SampleCount})
		}
		logger.Info("priors restored", "count", len(persisted))
	}

	reasoner, err := buildReasoner(cfg.Reasoner)
	if err != nil {
		logger.Error("failed to build reasoner client", "mode", cfg.Reasoner.Mode, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.General.SolveTimeout.Duration)
	defer cancel()

	if err := reasoner.Initialize(ctx); err != nil {
		logger.Error("failed to initialize reasoner", "error", err)
		os.Exit(1)
	}
	defer reasoner.Destroy(context.Background())

	solver := &rigd.AcquisitionSolver{
		Priors:      priors,
		Reasoner:    reasoner,
		CodeVersion: "ember-plan-dev",
		Logger:      logger,
	}

	scheduler := timeframe.NewManager(bucketsFromConfig(cfg.Buckets)...)

	var runner *workflowrunner.Runner
	if cfg.Workflow.Enabled {
		runner, err = workflowrunner.StartRunner(cfg.Workflow, solver, scheduler)
		if err != nil {
			logger.Error("failed to start temporal runner", "error", err)
			os.Exit(1)
		}
		defer runner.Close()
	}

	inventory := parseInventory(*inventoryFlag)
	nearbyBlocks := splitNonEmpty(*nearbyBlocksFlag)

	if runner != nil {
		result, err := runner.ExecutePlan(cfg.Workflow, workflowrunner.PlanRequest{
			Item:                *item,
			Count:               *count,
			Inventory:           inventory,
			NearbyBlocks:        nearbyBlocks,
			EstimatedDurationMs: 5 * 60_000,
			RequiredBucket:      *requiredBucket,
		})
		if err != nil {
			logger.Error("workflow plan failed", "error", err)
			os.Exit(1)
		}
		printResult(result.Acquisition, &result.BucketName)
		return
	}

	result, err := solver.Solve(ctx, *item, *count, inventory, nearbyBlocks, nil)
	if err != nil {
		logger.Error("solve failed", "error", err)
		os.Exit(1)
	}
	printResult(result, nil)
}

func buildReasoner(cfg config.Reasoner) (reasonerclient.Reasoner, error) {
	switch cfg.Mode {
	case "docker":
		return dockerreasoner.New(cfg.DockerImage)
	default:
		return inmemfake.New(), nil
	}
}

func bucketsFromConfig(overrides map[string]config.Bucket) []timeframe.TimeBucket {
	defaults := timeframe.DefaultBuckets()
	if len(overrides) == 0 {
		return defaults
	}
	out := make([]timeframe.TimeBucket, len(defaults))
	for i, b := range defaults {
		if o, ok := overrides[b.Name]; ok {
			if o.MaxDurationMs > 0 {
				b.MaxDurationMs = o.MaxDurationMs
			}
			if o.Priority > 0 {
				b.Priority = o.Priority
			}
		}
		out[i] = b
	}
	return out
}

func parseInventory(raw string) map[string]int {
	inventory := map[string]int{}
	for _, pair := range splitNonEmpty(raw) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		inventory[strings.TrimSpace(parts[0])] = n
	}
	return inventory
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func printResult(result rigd.AcquisitionResult, bucketName *string) {
	payload := map[string]any{
		"solved":               result.Solved,
		"selected_strategy":    result.SelectedStrategy,
		"error":                result.Error,
		"parent_bundle_id":     result.ParentBundleID,
		"candidate_set_digest": result.CandidateSetDigest,
	}
	if bucketName != nil {
		payload["bucket"] = *bucketName
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
