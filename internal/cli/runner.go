package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mcp-compliance-runner/internal/conformance"
	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/history"
	"github.com/mcp-compliance-runner/internal/mcp/client"
	"github.com/mcp-compliance-runner/internal/publish"
	"github.com/mcp-compliance-runner/internal/report"
	"github.com/mcp-compliance-runner/internal/requirements"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// breakerCooldown is how long an open breaker waits before probing again
const breakerCooldown = 5 * time.Second

// NewRunnerCommand returns the compliance-runner root command
func NewRunnerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "compliance-runner",
		Short:         "Run MCP protocol compliance checks against a server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompliance(cmd.Context(), cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to a configuration file")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")

	local := cmd.Flags()
	local.String("server-url", "", "MCP server URL (or MCP_SERVER_URL)")
	local.String("spec-version", "", "spec version to check (default: latest known)")
	local.String("level", "MUST,SHOULD", "comma separated requirement levels to run")
	local.String("features", "", "comma separated features or feature areas to run (default: all)")
	local.String("json-report", "reports/summary.json", "path of the JSON report")
	local.Bool("verbose", false, "debug logging and reasons for every check")
	local.String("transport", "http", "transport to use (http or websocket)")
	local.Duration("timeout", 10*time.Second, "timeout for a single exchange")

	cmd.AddCommand(newVersionsCommand(), newHistoryCommand())
	return cmd
}

func newTransport(cfg *domain.Config) (client.Transport, error) {
	if cfg.Transport == "websocket" {
		url, err := client.WebSocketURL(cfg.ServerURL)
		if err != nil {
			return nil, err
		}
		return client.NewWebSocketTransport(url), nil
	}
	return client.NewHTTPTransport(cfg.ServerURL, nil), nil
}

func runCompliance(ctx context.Context, cmd *cobra.Command) error {
	manager, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := manager.ValidateRunner(); err != nil {
		return setupError("invalid configuration: %v", err)
	}
	cfg := manager.GetConfig()

	logger, err := newLogger(manager)
	if err != nil {
		return err
	}
	defer closeLogger(logger)
	levels, err := manager.Levels()
	if err != nil {
		return setupError("%v", err)
	}

	registry, err := requirements.Load()
	if err != nil {
		return setupError("failed to load requirement catalogs: %v", err)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return setupError("%v", err)
	}
	c := client.New(transport,
		client.WithLogger(logger),
		client.WithTimeout(cfg.Client.Timeout),
		client.WithBreaker(cfg.Client.BreakerFailures, breakerCooldown),
	)
	defer c.Close()

	session := conformance.NewSession(c, registry, cfg.Poll, logger)
	runner := conformance.NewRunner(registry, session, conformance.Options{
		SpecVersion: cfg.SpecVersion,
		Levels:      levels,
		Features:    cfg.Features,
	}, logger)

	results, err := runner.Run(ctx)
	if err != nil {
		var verr *domain.UnsupportedVersionError
		if errors.As(err, &verr) {
			return setupError("%v", err)
		}
		return setupError("compliance run failed: %v", err)
	}

	rep := report.Finalize(results, report.Meta{
		SpecVersion: runner.SpecVersion(),
		ServerURL:   cfg.ServerURL,
	}, registry)

	if cfg.JSONReport != "" {
		if err := rep.WriteJSON(cfg.JSONReport); err != nil {
			logger.WithError(err).WithField("path", cfg.JSONReport).Error("Failed to write JSON report")
		} else {
			logger.WithField("path", cfg.JSONReport).Info("JSON report written")
		}
	}
	rep.PrintConsole(cmd.OutOrStdout(), cfg.Verbose)

	storeRun(ctx, cfg, rep, logger)
	publishRun(ctx, cfg, rep, logger)

	logger.WithFields(logrus.Fields{
		"run_id":        rep.RunID,
		"status":        rep.OverallStatus(),
		"must_failures": rep.Summary.MustFailures,
	}).Info("Compliance run finished")

	if code := rep.ExitCode(); code != ExitOK {
		return &ExitError{Code: code, Err: fmt.Errorf("%d MUST requirement(s) failed", rep.Summary.MustFailures)}
	}
	return nil
}

// storeRun saves the report when history is configured; failures are logged
func storeRun(ctx context.Context, cfg *domain.Config, rep *report.ComplianceReport, logger *logrus.Logger) {
	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to open run history")
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	if err := store.Save(ctx, rep); err != nil {
		logger.WithError(err).Warn("Failed to store run")
		return
	}
	logger.WithField("driver", cfg.History.Driver).Debug("Run stored in history")
}

// publishRun announces the run on Redis when a URL is configured
func publishRun(ctx context.Context, cfg *domain.Config, rep *report.ComplianceReport, logger *logrus.Logger) {
	if cfg.Publish.RedisURL == "" {
		return
	}
	pub, err := publish.NewRedisPublisher(ctx, cfg.Publish, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis")
		return
	}
	defer pub.Close()

	if err := pub.Publish(ctx, rep); err != nil {
		logger.WithError(err).Warn("Failed to publish run")
	}
}

func newVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the spec versions with a requirement catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := requirements.Load()
			if err != nil {
				return setupError("failed to load requirement catalogs: %v", err)
			}
			return printVersions(cmd.OutOrStdout(), registry)
		},
	}
}

func printVersions(w io.Writer, registry *requirements.Registry) error {
	latest := registry.Latest()
	for _, v := range registry.SupportedVersions() {
		reqs, err := registry.RequirementsFor(v)
		if err != nil {
			return err
		}
		marker := ""
		if v == latest {
			marker = " (latest)"
		}
		fmt.Fprintf(w, "%s%s: %d requirements\n", v, marker, len(reqs))
	}
	return nil
}
