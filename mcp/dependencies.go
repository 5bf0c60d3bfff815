package mcp

import (
	"github.com/ludo-technologies/finscn/app"
	"github.com/ludo-technologies/finscn/domain"
	"github.com/ludo-technologies/finscn/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	fileReader domain.MethodFileReader
	configPath string
}

// NewDependencies constructs the dependency set. An empty configPath makes
// every call discover .finscn.toml from the working directory.
func NewDependencies(configPath string) *Dependencies {
	return &Dependencies{
		fileReader: service.NewFileReader(),
		configPath: configPath,
	}
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// BuildRewriteUseCase assembles a fresh RewriteUseCase for one tool call.
func (d *Dependencies) BuildRewriteUseCase() (*app.RewriteUseCase, error) {
	return app.NewRewriteUseCaseBuilder().
		WithService(service.NewRewriteService()).
		WithFileReader(d.fileReader).
		WithFormatter(service.NewRewriteFormatter()).
		WithConfigLoader(service.NewConfigurationLoader()).
		Build()
}
