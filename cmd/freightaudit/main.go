package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/freightauditlabs/freightaudit/internal/alert"
	"github.com/freightauditlabs/freightaudit/internal/analytics"
	"github.com/freightauditlabs/freightaudit/internal/audit"
	auditservice "github.com/freightauditlabs/freightaudit/internal/audit/service"
	"github.com/freightauditlabs/freightaudit/internal/batch"
	batchservice "github.com/freightauditlabs/freightaudit/internal/batch/service"
	"github.com/freightauditlabs/freightaudit/internal/clock"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/freightauditlabs/freightaudit/internal/dispute"
	"github.com/freightauditlabs/freightaudit/internal/ingest"
	"github.com/freightauditlabs/freightaudit/internal/migration"
	"github.com/freightauditlabs/freightaudit/internal/observability"
	"github.com/freightauditlabs/freightaudit/internal/ratecard"
	"github.com/freightauditlabs/freightaudit/internal/redis"
	"github.com/freightauditlabs/freightaudit/internal/report"
	"github.com/freightauditlabs/freightaudit/internal/server"
	"github.com/freightauditlabs/freightaudit/internal/watcher"
	"github.com/freightauditlabs/freightaudit/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "freightaudit",
		Short:   "Carrier invoice audit engine",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newAllCmd(), newAuditCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var (
		invoicePath  string
		contractPath string
		provider     string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit one invoice/contract pair and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(invoicePath, contractPath, provider)
		},
	}
	cmd.Flags().StringVar(&invoicePath, "invoice", "", "invoice CSV path")
	cmd.Flags().StringVar(&contractPath, "contract", "", "rate card CSV path")
	cmd.Flags().StringVar(&provider, "provider", "", "carrier name (detected from the contract when empty)")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("contract")
	return cmd
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		audit.Module,
		batch.Module,
		dispute.Module,
		alert.Module,
		analytics.Module,
		report.Module,
		watcher.Module,
		server.Module,
	)
	app.Run()
}

// runAudit evaluates a single pair without touching the database.
func runAudit(invoicePath, contractPath, provider string) error {
	log, err := observability.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	contract, err := ingest.ParseContractFile(contractPath, provider)
	if err != nil {
		return err
	}
	index, err := ratecard.BuildIndex(contract)
	if err != nil {
		return err
	}

	rows, err := ingest.ParseInvoiceFile(invoicePath)
	if err != nil {
		return err
	}
	result := ingest.Normalize(rows)
	if len(result.Items) == 0 {
		return fmt.Errorf("no valid invoice rows in %s", invoicePath)
	}

	evaluator := auditservice.NewEvaluator(log)
	discrepancies := evaluator.Evaluate(context.Background(), result.Items, index)
	summary := batchservice.BuildSummary(result.Items, result.Skipped, discrepancies)

	out := struct {
		Provider      string `json:"provider"`
		Summary       any    `json:"summary"`
		Discrepancies any    `json:"discrepancies"`
	}{
		Provider:      contract.Provider,
		Summary:       summary,
		Discrepancies: discrepancies,
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))

	log.Info("audit complete",
		zap.Int("line_items", len(result.Items)),
		zap.Int("skipped_rows", result.Skipped),
		zap.Int("discrepancies", len(discrepancies)))
	return nil
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
