package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ontomap/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ontomap/internal/adapters/driven/events/kafka"
	"github.com/custodia-labs/ontomap/internal/adapters/driven/index"
	"github.com/custodia-labs/ontomap/internal/adapters/driven/metrics"
	"github.com/custodia-labs/ontomap/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ontomap/internal/adapters/driving/cli"
	"github.com/custodia-labs/ontomap/internal/connectors/ols"
	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/services"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure Build satisfies the CLI bootstrap signature.
var _ cli.Bootstrap = Build

// Build loads configuration and wires every service. The returned cleanup
// closes the event sink, the index and the database in that order.
func Build(_ context.Context, opts cli.Options) (*cli.Services, func() error, error) {
	store, err := configStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return FromStore(store)
}

// FromStore wires the services for the configuration a store holds.
func FromStore(store driven.ConfigStore) (*cli.Services, func() error, error) {
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", store.Path(), err)
	}
	logger.Debug("Loaded configuration from %s (engine=%s)", store.Path(), cfg.Engine)

	return Wire(cfg)
}

// Wire builds the services for a loaded configuration.
func Wire(cfg *domain.Config) (*cli.Services, func() error, error) {
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		logger.Sync()
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, func() error, error) {
		if cerr := cleanup(); cerr != nil {
			logger.Warn("Cleanup after failed start: %v", cerr)
		}
		return nil, nil, err
	}

	db, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	closers = append(closers, db.Close)

	mapper, err := services.NewDocumentMapper(cfg)
	if err != nil {
		return fail(err)
	}

	indexDir := cfg.Storage.IndexDir
	if indexDir == "" {
		indexDir = filepath.Join(filepath.Dir(db.Path()), "index")
	}
	if err := os.MkdirAll(filepath.Dir(indexDir), 0700); err != nil {
		return fail(fmt.Errorf("create index directory: %w", err))
	}
	handle, err := index.Open(indexDir, mapper.Schema())
	if err != nil {
		return fail(err)
	}
	search := index.New(handle, mapper.Schema())
	closers = append(closers, search.Close)

	m := metrics.New()

	var sink driven.MappingEventSink
	if cfg.Kafka.Enabled() {
		k := kafka.NewSink(kafka.ConfigFrom(cfg.Kafka))
		closers = append(closers, k.Close)
		sink = k
		logger.Debug("Publishing mapping events to %s", cfg.Kafka.Topic)
	}

	rules := db.RuleStore()
	terms := db.OntologyTermStore()

	engine, err := services.NewSuggestionEngine(cfg, services.EngineDeps{
		Builder:    services.NewQueryBuilder(cfg),
		Normalizer: services.NewRelativeScoreNormalizer(mapper, search, search),
		Rules:      rules,
		Terms:      terms,
		Comparator: services.NewWeightedComparator(nil, services.NewAnalyzer(cfg.Query.MaxTokens)),
		Metrics:    m,
	})
	if err != nil {
		return fail(err)
	}

	api := ols.NewClient(ols.OptionsFromConfig(cfg.Crawler))

	s := &cli.Services{
		Engine:   engine,
		AutoMap:  services.NewAutoMapService(cfg.AutoMap, engine, rules, sink, m),
		Index:    services.NewIndexService(mapper, search, rules, terms, m),
		Rules:    services.NewRuleService(rules),
		Ontology: services.NewOntologyLoaderService(cfg.Crawler, api, terms, db.FrontierStore(), m),
	}
	if addr := cfg.Metrics.Addr; addr != "" {
		s.Serve = func(ctx context.Context) error { return m.Serve(ctx, addr) }
	}
	return s, cleanup, nil
}

func configStore(path string) (driven.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreFromFile(path), nil
	}
	return file.NewConfigStore("")
}
