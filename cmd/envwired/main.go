package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ushadow/envwire/pkg/catalog"
	"github.com/ushadow/envwire/pkg/config"
	"github.com/ushadow/envwire/pkg/infra"
	"github.com/ushadow/envwire/pkg/secrets"
	"github.com/ushadow/envwire/pkg/server"
	"github.com/ushadow/envwire/pkg/settings"
)

// Version information set during build
var (
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	debugMode := flag.Bool("debug", false, "Enable debug mode")
	configFile := flag.String("config", "", "Path to configuration file")

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", "envwired", version)
		os.Exit(0)
	}

	if *configFile == "" {
		n, err := fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		if err != nil || n <= 0 {
			panic("Failed to print error message")
		}
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    false,
		TimeFormat: "2006-01-02 15:04:05",
	})
	server.SetDebug(*debugMode)
	defer func() {
		// Exit gracefully after panicking
		if r := recover(); r != nil {
			log.Fatal().Msgf("Fatal error: %v", r)
			os.Exit(1)
		}
	}()

	cfg := readConfig(*configFile)

	backend, closers := buildBackend(cfg)

	serviceCatalog, err := catalog.LoadDir(cfg.Server.CatalogDir)
	if err != nil {
		panic(errors.Wrap(err, "failed to load service catalog"))
	}

	api := server.NewAPI(
		serviceCatalog,
		settings.NewService(backend, nil),
		infra.NewWiringRegistry(serviceCatalog),
	)
	envwired := server.NewServer(cfg, api)
	for _, closer := range closers {
		envwired.AddShutdownHook(closer)
	}

	if err := envwired.StartAndWaitForSignal(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

// readConfig loads the configuration file and registers the secret providers
// it declares, so that both config placeholder expansion and stored setting
// references can resolve through them.
func readConfig(file string) *config.Config {
	cfg, err := config.ReadConfig(file)
	if err != nil {
		panic(err)
	}

	vaultCfg, err := config.Get[secrets.VaultConfig](cfg, "vault")
	if err != nil {
		panic(errors.Wrap(err, "failed to load Vault configuration"))
	}
	if vaultCfg != nil {
		vaultClient, err := vaultCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create Vault client"))
		}
		secrets.Default().Register("vault", secrets.NewVaultProvider(vaultClient, vaultCfg.Path))
	}

	fileCfg, err := config.Get[secrets.FileConfig](cfg, "file_resolver")
	if err != nil {
		panic(errors.Wrap(err, "failed to load file secret resolver configuration"))
	}
	if fileCfg != nil {
		fileProvider, err := fileCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create file secret provider"))
		}
		secrets.Default().Register("file", fileProvider)
	}

	awsCfg, err := config.Get[secrets.AWSConfig](cfg, "aws")
	if err != nil {
		panic(errors.Wrap(err, "failed to load AWS configuration"))
	}
	if awsCfg != nil {
		awsClient, err := awsCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create AWS Secrets Manager client"))
		}
		secrets.Default().Register("aws", secrets.NewAWSProvider(awsClient, awsCfg.SecretName))
	}

	return cfg
}

// buildBackend constructs the configured settings backend and wraps it in
// the Memcached candidate cache when a cache section is present. The
// returned closers run as shutdown hooks.
func buildBackend(cfg *config.Config) (settings.Backend, []func() error) {
	var backend settings.Backend
	var closers []func() error

	switch cfg.Server.SettingsBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory settings backend, settings will not survive restarts")
		backend = settings.NewMemoryBackend()

	case config.BackendMongo:
		mongoCfg, err := config.Get[settings.MongoConfig](cfg, "mongo")
		if err != nil {
			panic(errors.Wrap(err, "failed to load MongoDB configuration"))
		}
		if mongoCfg == nil {
			panic("settings_backend is mongo but no mongo section is configured")
		}
		client, err := mongoCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create MongoDB client"))
		}
		closers = append(closers, func() error {
			return client.Disconnect(context.Background())
		})
		backend = settings.NewMongoBackend(client, *mongoCfg)

	case config.BackendRedis:
		redisCfg, err := config.Get[settings.RedisConfig](cfg, "redis")
		if err != nil {
			panic(errors.Wrap(err, "failed to load Redis configuration"))
		}
		if redisCfg == nil {
			panic("settings_backend is redis but no redis section is configured")
		}
		pool, err := redisCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create Redis pool"))
		}
		closers = append(closers, pool.Close)
		backend = settings.NewRedisBackend(pool, *redisCfg)

	case config.BackendPostgres:
		postgresCfg, err := config.Get[settings.PostgresConfig](cfg, "postgres")
		if err != nil {
			panic(errors.Wrap(err, "failed to load Postgres configuration"))
		}
		if postgresCfg == nil {
			panic("settings_backend is postgres but no postgres section is configured")
		}
		pool, err := postgresCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create Postgres pool"))
		}
		closers = append(closers, func() error {
			pool.Close()
			return nil
		})
		backend, err = settings.NewPostgresBackend(context.Background(), pool, *postgresCfg)
		if err != nil {
			panic(errors.Wrap(err, "failed to initialize Postgres backend"))
		}

	default:
		panic(fmt.Sprintf("unknown settings backend %q", cfg.Server.SettingsBackend))
	}

	cacheCfg, err := config.Get[settings.MemcachedConfig](cfg, "cache")
	if err != nil {
		panic(errors.Wrap(err, "failed to load cache configuration"))
	}
	if cacheCfg != nil {
		client, err := cacheCfg.CreateClient()
		if err != nil {
			panic(errors.Wrap(err, "failed to create Memcached client"))
		}
		backend = settings.NewCachedBackend(backend, client, *cacheCfg)
		log.Info().Msg("Candidate listing cache enabled")
	}

	return backend, closers
}
