package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tesseradb/tessera/pkg/api"
	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/config"
	mcpserver "github.com/tesseradb/tessera/server/mcp"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a JSON config file")
		catalogPath = flag.String("catalog", "", "JSON catalog file, overrides the configured catalog")
		query       = flag.String("query", "", "SQL statement to explain; prints the plan and exits")
		serve       = flag.Bool("serve", false, "serve the MCP endpoint")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger := api.NewDefaultLogger(logLevel(cfg.Log.Level))

	cat, err := openCatalog(context.Background(), cfg, *catalogPath)
	if err != nil {
		logger.Error("open catalog failed: %v", err)
		os.Exit(1)
	}

	db, err := api.NewDB(&api.DBConfig{
		Logger:          logger,
		SessionDefaults: cfg.Session,
	})
	if err != nil {
		logger.Error("create engine failed: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RegisterCatalog(cat); err != nil {
		logger.Error("register catalog failed: %v", err)
		os.Exit(1)
	}

	switch {
	case *query != "":
		plan, err := db.Session().Explain(context.Background(), *query)
		if err != nil {
			logger.Error("explain failed: %v", err)
			os.Exit(1)
		}
		fmt.Println(plan)

	case *serve:
		logger.Info("catalog %s loaded, serving MCP on %s", cat.Name(), cfg.GetListenAddress())
		srv := mcpserver.NewServer(db, cfg.Server)
		if err := srv.Start(context.Background()); err != nil {
			logger.Error("MCP server exited: %v", err)
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfigOrDefault(), nil
	}
	return config.LoadConfig(path)
}

// openCatalog builds the catalog named by the config. A -catalog flag wins
// over the configured one so a JSON file can be inspected without editing
// config.
func openCatalog(ctx context.Context, cfg *config.Config, override string) (catalog.Catalog, error) {
	if override != "" {
		return catalog.LoadJSON(override)
	}

	switch cfg.Catalog.Kind {
	case "memory":
		return catalog.NewMemoryCatalog(cfg.Catalog.Name), nil
	case "json":
		return catalog.LoadJSON(cfg.Catalog.Path)
	case "excel":
		return catalog.LoadExcel(cfg.Catalog.Name, cfg.Catalog.Path)
	case "sql":
		c, err := catalog.NewSQLCatalog(cfg.Catalog.Name, cfg.Catalog.Driver, cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported catalog kind: %s", cfg.Catalog.Kind)
	}
}

func logLevel(name string) api.LogLevel {
	switch name {
	case "debug":
		return api.LogDebug
	case "warn":
		return api.LogWarn
	case "error":
		return api.LogError
	default:
		return api.LogInfo
	}
}
