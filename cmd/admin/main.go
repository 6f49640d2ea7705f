package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/cybersource-plugin/internal/bootstrap"
	"github.com/kevin07696/cybersource-plugin/internal/config"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
)

var Version = "dev"

// cli holds the flags shared by every command
type cli struct {
	tenant     string
	properties []string
	asJSON     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "cybersource-admin",
		Short:         "Operate on the CyberSource plugin ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.tenant, "tenant", "", "billing platform tenant id (required)")
	rootCmd.PersistentFlags().StringArrayVarP(&c.properties, "property", "p", nil, "plugin property as key=value (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON")
	_ = rootCmd.MarkPersistentFlagRequired("tenant")

	rootCmd.AddCommand(paymentInfoCmd(c))
	rootCmd.AddCommand(cancelResponseCmd(c))
	rootCmd.AddCommand(shouldCreditCmd(c))
	rootCmd.AddCommand(reportCmd(c))

	return rootCmd
}

// withDeps loads configuration, builds the dependency graph and runs fn
func (c *cli) withDeps(ctx context.Context, fn func(deps *bootstrap.Dependencies, logger *zap.Logger) error) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := bootstrap.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	return fn(deps, logger)
}

func (c *cli) tenantID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--tenant must be a UUID: %w", err)
	}
	return id, nil
}

func (c *cli) props() (domain.Properties, error) {
	return parseProperties(c.properties)
}

// parseProperties turns key=value pairs into plugin properties, keeping order
func parseProperties(pairs []string) (domain.Properties, error) {
	var props domain.Properties
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("property %q is not key=value", pair)
		}
		props = append(props, domain.PluginProperty{Key: key, Value: value})
	}
	return props, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
