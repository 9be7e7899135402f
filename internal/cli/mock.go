package cli

import (
	"github.com/mcp-compliance-runner/internal/mockserver"
	"github.com/spf13/cobra"
)

// NewMockCommand returns the mock-server root command
func NewMockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mock-server",
		Short:         "Serve a reference MCP server for exercising the compliance runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := manager.ValidateMock(); err != nil {
				return setupError("invalid configuration: %v", err)
			}
			logger, err := newLogger(manager)
			if err != nil {
				return err
			}
			defer closeLogger(logger)

			server, err := mockserver.NewServer(manager.GetConfig().Mock, logger)
			if err != nil {
				return setupError("failed to create mock server: %v", err)
			}
			if err := server.Start(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Mock server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to a configuration file")
	flags.String("host", "127.0.0.1", "address to listen on")
	flags.Int("port", 8000, "port to listen on")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	return cmd
}
