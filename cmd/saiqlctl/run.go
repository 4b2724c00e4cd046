package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/saiql-project/saiql-go/adapter/sqlite"
	"github.com/saiql-project/saiql-go/internal/config"
	"github.com/saiql-project/saiql-go/internal/logging"
	"github.com/saiql-project/saiql-go/pkg/adapter"
	"github.com/saiql-project/saiql-go/pkg/engine"
	"github.com/saiql-project/saiql-go/pkg/firewall"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/optimizer"
	"github.com/saiql-project/saiql-go/pkg/safety"
)

var queryFile string

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Compile and execute one SAIQL query",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := resolveQuery(args)
		if err != nil {
			return err
		}

		e, log, err := buildEngine()
		if err != nil {
			return err
		}
		defer e.Shutdown()

		result := e.Execute(context.Background(), query, engine.ExecutionContext{})
		log.WithField("success", result.Success).Info("query executed")
		return printResult(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&queryFile, "file", "", "read the query from a file instead of an argument")
	rootCmd.AddCommand(runCmd)
}

func resolveQuery(args []string) (string, error) {
	if queryFile != "" {
		data, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return string(data), nil
	}
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one query argument (or --file)")
	}
	return args[0], nil
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildEngine wires together the legend, firewall, safety policy, sqlite
// adapter, and engine from the resolved configuration and command-line
// overrides.
func buildEngine() (*engine.Engine, *logrus.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if dialectName != "" {
		cfg.Compilation.TargetDialect = dialectName
	}

	log := logging.New(cfg.Logging.Level)

	lg, err := legend.LoadFromFile(cfg.Legend.Path)
	if err != nil {
		log.WithError(err).Warn("could not load legend file, falling back to an empty legend")
		lg = legend.Empty()
	}

	fw := firewall.New()
	if err := fw.LoadFile(cfg.Security.FirewallRulesPath); err != nil {
		log.WithError(err).Warn("could not load firewall rules, firewall will fail closed")
	}

	var policy safety.Policy
	switch cfg.Security.SafetyProfile {
	case "strict":
		policy = safety.Strict()
	case "default":
		policy = safety.Default()
	default:
		policy = safety.Development()
	}

	level := optimizer.LevelStandard
	switch cfg.Compilation.OptimizationLevel {
	case "none":
		level = optimizer.LevelNone
	case "basic":
		level = optimizer.LevelBasic
	case "aggressive":
		level = optimizer.LevelAggressive
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}

	e := engine.New(engine.Options{
		Legend:            lg,
		Dialect:           cfg.Compilation.TargetDialect,
		OptimizationLevel: level,
		EnableCaching:     cfg.Compilation.EnableCaching,
		CacheSize:         cfg.CacheSize,
		SafetyPolicy:      &policy,
		Firewall:          fw,
		Adapters:          map[string]adapter.Adapter{"sqlite": db},
		DefaultBackend:    "sqlite",
		Logger:            log,
	})
	return e, log, nil
}

func printResult(result engine.QueryResult) error {
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("success: %v\n", result.Success)
	if result.SQLGenerated != "" {
		fmt.Printf("sql: %s\n", result.SQLGenerated)
	}
	for _, row := range result.Data {
		fmt.Printf("%v\n", row)
	}
	if result.ErrorMessage != "" {
		fmt.Printf("error (%s): %s\n", result.ErrorPhase, result.ErrorMessage)
	}
	return nil
}
