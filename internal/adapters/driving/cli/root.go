package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/adapters/driving/mcp"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// skipBootstrap marks commands that need no services.
const skipBootstrap = "skip-bootstrap"

var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services are the driving ports the commands call.
type Services struct {
	Engine   driving.SuggestionEngine
	AutoMap  driving.AutoMapService
	Index    driving.IndexService
	Rules    driving.RuleService
	Ontology driving.OntologyLoader

	// Serve starts optional background listeners (metrics) for
	// long-running commands. May be nil.
	Serve func(ctx context.Context) error
}

// Options carries root flags to the bootstrap function.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Bootstrap builds the services. The returned cleanup releases them.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func() error, error)

var (
	services  *Services
	bootstrap Bootstrap
	cleanup   func() error
)

var rootCmd = &cobra.Command{
	Use:   "ontomap",
	Short: "Suggest ontology mappings for clinical source records",
	Long: `ontomap maps provider-supplied treatment and diagnosis records onto
ontology terms. It crawls the ontology, indexes curated rules and terms,
ranks candidate mappings and commits the confident ones automatically.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ontomap/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs pre-built services; bootstrap is skipped.
func SetServices(s *Services) {
	services = s
}

// SetBootstrap installs the function that builds services on demand.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		if err := teardown(); err != nil {
			logger.Warn("Cleanup failed: %v", err)
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[skipBootstrap] != "" || services != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	s, c, err := bootstrap(cmd.Context(), Options{ConfigPath: configPath, Verbose: verbose})
	if err != nil {
		return err
	}
	services = s
	cleanup = c
	return nil
}

func teardown() error {
	if cleanup == nil {
		return nil
	}
	c := cleanup
	cleanup = nil
	services = nil
	return c()
}

// mcpPorts exposes the services to the MCP server.
func mcpPorts() *mcp.Ports {
	return &mcp.Ports{Engine: services.Engine, AutoMap: services.AutoMap, Ontology: services.Ontology}
}
