// Command colstore is a diagnostic CLI for colstore databases: inspect
// collections, run queries, explain their SQL translation, backfill
// embeddings, and serve a database over the unix-socket bridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/colstore/internal/config"
	"github.com/dshills/colstore/internal/embedder"
	"github.com/dshills/colstore/internal/sqlexec"
	"github.com/dshills/colstore/internal/storage"
	"github.com/dshills/colstore/pkg/types"
)

var (
	version = "dev"

	configPath  string
	schemasPath string
)

var rootCmd = &cobra.Command{
	Use:   "colstore",
	Short: "Schema-driven collection storage engine",
	Long:  `Diagnostic CLI for colstore databases: collections, queries, query plans, vector backfill, and the SQL bridge server.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the colstore version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("colstore %s (engine %s)\n", version, storage.EngineVersion)
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		names, err := reg.Default().ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <collection>",
	Short: "Show record count and indexes for a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		stats, err := reg.Default().CollectionStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <collection>",
	Short: "Run a filter query and print matching records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery(cmd, args[0])
		if err != nil {
			return err
		}
		reg, err := openRegistry(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		records, err := reg.Default().Query(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <collection>",
	Short: "Show the SQL translation and query plan for a filter query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery(cmd, args[0])
		if err != nil {
			return err
		}
		reg, err := openRegistry(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		res, err := reg.Default().ExplainQuery(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <collection> <text>",
	Short: "Embed the text and run a vector similarity search",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		metric, _ := cmd.Flags().GetString("metric")

		reg, err := openRegistry(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		a := reg.Default()
		vec, err := a.GenerateEmbedding(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		results, err := a.VectorSearch(cmd.Context(), args[0], vec, topK, types.DistanceMetric(metric))
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill <collection> <text-field>",
	Short: "Generate embeddings for records that lack one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		reg, err := openRegistry(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer reg.CloseAll()

		stats, err := reg.Default().BackfillVectors(cmd.Context(), args[0], args[1], batchSize)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <socket-path>",
	Short: "Expose the configured database over the unix-socket SQL bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := cfg.BuildLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		exec, err := sqlexec.OpenSQLite(sqliteOptions(cfg))
		if err != nil {
			return err
		}
		defer exec.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := sqlexec.NewServer(exec, args[0], log)
		return srv.Serve(ctx)
	},
}

func sqliteOptions(cfg config.Config) sqlexec.SQLiteOptions {
	return sqlexec.SQLiteOptions{
		Path:          cfg.Database.Path,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		CacheSizeKB:   cfg.Database.CacheSizeKB,
		Synchronous:   cfg.Database.Synchronous,
		JournalMode:   cfg.Database.JournalMode,
	}
}

// openRegistry builds the registry from the config file and, when asked,
// verifies the schemas named by --schemas so collection operations resolve.
func openRegistry(ctx context.Context, needSchemas bool) (*storage.Registry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := cfg.BuildLogger()
	if err != nil {
		return nil, err
	}

	emb, err := embedder.New(embedder.Config{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	handleCfg := storage.HandleConfig{
		Backend:    cfg.Database.Backend,
		SQLite:     sqliteOptions(cfg),
		SocketPath: cfg.Database.SocketPath,
	}
	reg, err := storage.NewRegistry(ctx, handleCfg, storage.AdapterOptions{Logger: log, Embedder: emb})
	if err != nil {
		return nil, err
	}

	if needSchemas {
		if err := ensureSchemas(ctx, reg.Default()); err != nil {
			reg.CloseAll()
			return nil, err
		}
	}
	return reg, nil
}

// ensureSchemas loads the --schemas YAML file (a list of collection
// schemas) and verifies each one
func ensureSchemas(ctx context.Context, a *storage.Adapter) error {
	if schemasPath == "" {
		return fmt.Errorf("--schemas is required for collection operations")
	}
	data, err := os.ReadFile(schemasPath)
	if err != nil {
		return fmt.Errorf("read schemas %s: %w", schemasPath, err)
	}
	var doc struct {
		Collections []*types.CollectionSchema `yaml:"collections"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse schemas %s: %w", schemasPath, err)
	}
	for _, schema := range doc.Collections {
		if err := a.EnsureSchema(ctx, schema.Collection, schema); err != nil {
			return err
		}
	}
	return nil
}

// buildQuery folds the query flags into a universal query
func buildQuery(cmd *cobra.Command, collection string) (types.Query, error) {
	filterJSON, _ := cmd.Flags().GetString("filter")
	sortSpec, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	q := types.Query{Collection: collection, Limit: limit, Offset: offset}

	if filterJSON != "" {
		if err := json.Unmarshal([]byte(filterJSON), &q.Filter); err != nil {
			return types.Query{}, fmt.Errorf("invalid --filter: %w", err)
		}
	}
	if sortSpec != "" {
		for _, part := range strings.Split(sortSpec, ",") {
			field, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
			s := types.SortSpec{Field: field}
			switch dir {
			case "", "asc":
			case "desc":
				s.Direction = types.SortDesc
			default:
				return types.Query{}, fmt.Errorf("invalid sort direction %q (want asc or desc)", dir)
			}
			q.Sort = append(q.Sort, s)
		}
	}
	return q, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("filter", "", `filter as JSON, e.g. '{"age":{"gte":18}}'`)
	cmd.Flags().String("sort", "", "sort spec: field[:asc|desc][,field...]")
	cmd.Flags().Int("limit", 0, "max records to return")
	cmd.Flags().Int("offset", 0, "records to skip")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML")
	rootCmd.PersistentFlags().StringVar(&schemasPath, "schemas", "", "path to collection schemas YAML")

	addQueryFlags(queryCmd)
	addQueryFlags(explainCmd)
	searchCmd.Flags().Int("top-k", 10, "number of results")
	searchCmd.Flags().String("metric", "cosine", "similarity metric: cosine, dot, euclidean")
	backfillCmd.Flags().Int("batch-size", strconvAtoiDefault(os.Getenv("COLSTORE_BACKFILL_BATCH"), 100), "records per scan batch")

	rootCmd.AddCommand(versionCmd, collectionsCmd, statsCmd, queryCmd, explainCmd, searchCmd, backfillCmd, serveCmd)
}

func strconvAtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
