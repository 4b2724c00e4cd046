package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saiql-project/saiql-go/pkg/engine"
)

var stopOnError bool

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Execute every SAIQL query in a file, one per line, against the same session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one file argument")
		}

		queries, err := readQueryLines(args[0])
		if err != nil {
			return err
		}

		e, log, err := buildEngine()
		if err != nil {
			return err
		}
		defer e.Shutdown()

		results := e.ExecuteBatch(context.Background(), queries, engine.ExecutionContext{}, stopOnError)
		log.WithField("count", len(results)).Info("batch executed")

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		for _, r := range results {
			if err := printResult(r); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "stop the batch at the first failing query")
	rootCmd.AddCommand(batchCmd)
}

func readQueryLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}
