// Package main is the internmatch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	climsg "github.com/hyperjump/internmatch/internal/cli"
	"github.com/hyperjump/internmatch/internal/config"
	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/embedding"
	"github.com/hyperjump/internmatch/internal/ingest"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/recommend"
	"github.com/hyperjump/internmatch/internal/storage"
	"github.com/hyperjump/internmatch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/internmatch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// queryFlagSet returns the flags shared by match and batch.
func queryFlagSet() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "top-n", Aliases: []string{"n"}, Usage: "number of recommendations (default from config)"},
		&cli.StringFlag{Name: "weights", Aliases: []string{"w"}, Usage: "fusion weights as lexical,semantic, e.g. 0.4,0.6"},
		&cli.Float64Flag{Name: "min-score", Usage: "minimum hybrid score (default from config)"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "internmatch",
		Usage:   "Recommend internship listings for a student profile",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file path", Value: defaultConfigPath},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:      "match",
				Usage:     "Recommend listings for one profile",
				ArgsUsage: "[profile.json | -]",
				Action:    matchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "roles", Usage: "interested roles"},
					&cli.StringFlag{Name: "skills", Usage: "skillsets"},
					&cli.StringFlag{Name: "experience", Usage: "experience"},
					&cli.StringFlag{Name: "achievements", Usage: "achievements"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output format: text, compact, or json", Value: "text"},
				}, queryFlagSet()...),
			},
			{
				Name:      "batch",
				Usage:     "Recommend listings for every profile in a JSON Lines file",
				ArgsUsage: "[profiles.jsonl | -]",
				Action:    batchCommand,
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "workers", Usage: "concurrent profiles (default from config)"},
				}, queryFlagSet()...),
			},
			{
				Name:   "import",
				Usage:  "Build the listing corpus and store it",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listings", Aliases: []string{"l"}, Usage: "listing sheet (.csv or .xlsx)", Required: true},
					&cli.StringFlag{Name: "vectorizer", Usage: "fitted TF-IDF vectorizer (JSON)", Required: true},
					&cli.StringFlag{Name: "embeddings", Usage: "precomputed listing embeddings; embeds with the configured model when empty"},
					&cli.StringFlag{Name: "weights-file", Usage: "tuned fusion weights {\"weights\": [lexical, semantic]}"},
					&cli.StringFlag{Name: "id-column", Value: corpus.DefaultColumns().ID},
					&cli.StringFlag{Name: "title-column", Value: corpus.DefaultColumns().Title},
					&cli.StringFlag{Name: "description-column", Value: corpus.DefaultColumns().Description},
					&cli.StringFlag{Name: "skills-column", Value: corpus.DefaultColumns().RequiredSkills},
				},
			},
			{
				Name:   "weights",
				Usage:  "Show or store the default fusion weights",
				Action: weightsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "set", Usage: "store weights as lexical,semantic"},
				},
			},
			{
				Name:   "status",
				Usage:  "Show what the artifact store holds",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output format: text or json", Value: "text"},
				},
			},
		},
	}
}

// setup loads config and builds the logger for a command.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || c.Bool("debug")
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

// openService applies per-command overrides to cfg and opens the service.
func openService(c *cli.Context, cfg *config.Config, logger *zap.Logger) (*recommend.Service, error) {
	if c.IsSet("min-score") {
		score := c.Float64("min-score")
		cfg.Match.MinHybridScore = &score
	}
	if c.IsSet("workers") {
		cfg.Batch.Workers = c.Int("workers")
	}
	return recommend.Open(c.Context, cfg, logger)
}

// queryFlags reads --top-n and --weights.
func queryFlags(c *cli.Context) (int, *models.FusionWeights, error) {
	var weights *models.FusionWeights
	if s := c.String("weights"); s != "" {
		w, err := climsg.ParseWeights(s)
		if err != nil {
			return 0, nil, err
		}
		weights = &w
	}
	return c.Int("top-n"), weights, nil
}

func openInput(c *cli.Context) (io.ReadCloser, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		return io.NopCloser(c.App.Reader), nil
	}
	return os.Open(path)
}

// profileFromFlags builds a profile from --roles, --skills, --experience and
// --achievements, or returns nil when none is set.
func profileFromFlags(c *cli.Context) *models.QueryProfile {
	if !c.IsSet("roles") && !c.IsSet("skills") && !c.IsSet("experience") && !c.IsSet("achievements") {
		return nil
	}
	return &models.QueryProfile{
		InterestedRoles: c.String("roles"),
		Skillsets:       c.String("skills"),
		Experience:      c.String("experience"),
		Achievements:    c.String("achievements"),
	}
}

func matchCommand(c *cli.Context) error {
	format, err := climsg.ParseOutputFormat(c.String("output"))
	if err != nil {
		return err
	}
	topN, weights, err := queryFlags(c)
	if err != nil {
		return err
	}

	profile := profileFromFlags(c)
	if profile == nil {
		in, err := openInput(c)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(in)
		in.Close()
		if err != nil {
			return fmt.Errorf("failed to read profile: %w", err)
		}
		if profile, err = models.ParseProfile(data); err != nil {
			return err
		}
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := openService(c, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	recs, err := svc.Recommend(c.Context, recommend.Query{Profile: profile, TopN: topN, Weights: weights})
	if err != nil {
		return err
	}
	return climsg.WriteRecommendations(c.App.Writer, recs, format)
}

func batchCommand(c *cli.Context) error {
	topN, weights, err := queryFlags(c)
	if err != nil {
		return err
	}
	in, err := openInput(c)
	if err != nil {
		return err
	}
	profiles, err := climsg.ReadProfiles(in)
	in.Close()
	if err != nil {
		return err
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, err := openService(c, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	queries := make([]recommend.Query, len(profiles))
	for i, p := range profiles {
		queries[i] = recommend.Query{Profile: p, TopN: topN, Weights: weights}
	}
	results, err := svc.RecommendBatch(c.Context, queries)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		line := climsg.BatchLine{Index: r.Index, Recommendations: r.Recommendations}
		if r.Err != nil {
			line.Error = r.Err.Error()
			failed++
		}
		if err := climsg.WriteBatchLine(c.App.Writer, line); err != nil {
			return err
		}
	}
	logger.Info("batch complete", zap.Int("profiles", len(results)), zap.Int("failed", failed))
	return nil
}

func importCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	var model embedding.Embedder
	if c.String("embeddings") == "" {
		if model, err = embedding.New(&cfg.Embedding, logger); err != nil {
			return err
		}
		defer model.Close()
	}

	modelName := cfg.Embedding.Provider
	if cfg.Embedding.Model != "" {
		modelName += ":" + cfg.Embedding.Model
	} else if cfg.Embedding.ModelPath != "" {
		modelName += ":" + filepath.Base(cfg.Embedding.ModelPath)
	}
	im := ingest.New(store, model,
		ingest.WithLogger(logger),
		ingest.WithWorkers(cfg.Batch.Workers),
		ingest.WithBatchSize(cfg.Batch.EmbedSize),
		ingest.WithModelName(modelName),
	)
	sum, err := im.Import(c.Context, ingest.Source{
		ListingsPath: c.String("listings"),
		Columns: corpus.Columns{
			ID:             c.String("id-column"),
			Title:          c.String("title-column"),
			Description:    c.String("description-column"),
			RequiredSkills: c.String("skills-column"),
		},
		VectorizerPath: c.String("vectorizer"),
		EmbeddingsPath: c.String("embeddings"),
		WeightsPath:    c.String("weights-file"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %d listings (vocabulary %d, %d dimensions) as build %s in %s\n",
		sum.Listings, sum.Vocabulary, sum.Dimensions, sum.BuildID, sum.Duration.Round(time.Millisecond))
	return nil
}

func weightsCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if s := c.String("set"); s != "" {
		w, err := climsg.ParseWeights(s)
		if err != nil {
			return err
		}
		if err := store.SaveWeights(c.Context, w); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Stored weights: lexical %.4f, semantic %.4f\n", w.Lexical, w.Semantic)
		return nil
	}

	source := "config"
	w := models.FusionWeights{Lexical: cfg.Match.LexicalWeight, Semantic: cfg.Match.SemanticWeight}
	if stored, err := store.Weights(c.Context); err != nil {
		return err
	} else if stored != nil {
		w, source = *stored, "store"
	}
	if cfg.Match.WeightsPath != "" {
		if w, err = corpus.LoadWeights(cfg.Match.WeightsPath); err != nil {
			return err
		}
		source = cfg.Match.WeightsPath
	}
	fmt.Fprintf(c.App.Writer, "lexical %.4f, semantic %.4f (from %s)\n", w.Lexical, w.Semantic, source)
	return nil
}

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	Listings       int64                 `json:"listings"`
	Vocabulary     int                   `json:"vocabulary"`
	Dimensions     int                   `json:"dimensions"`
	BuildID        string                `json:"build_id,omitempty"`
	EmbeddingModel string                `json:"embedding_model,omitempty"`
	CreatedAt      string                `json:"created_at,omitempty"`
	Weights        *models.FusionWeights `json:"weights,omitempty"`
	DiskUsageBytes int64                 `json:"disk_usage_bytes"`
	DatabasePath   string                `json:"database_path"`
	Provider       string                `json:"embedding_provider"`
}

func statusCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(c.Context)
	if err != nil {
		return err
	}
	disk, err := store.DiskUsage()
	if err != nil {
		logger.Warn("disk usage unavailable", zap.Error(err))
	}
	out := statusOutput{
		Listings:       st.Listings,
		Vocabulary:     st.Vocabulary,
		Dimensions:     st.Dimensions,
		BuildID:        st.BuildID,
		EmbeddingModel: st.EmbeddingModel,
		Weights:        st.Weights,
		DiskUsageBytes: disk,
		DatabasePath:   cfg.Storage.DatabasePath,
		Provider:       cfg.Embedding.Provider,
	}
	if !st.CreatedAt.IsZero() {
		out.CreatedAt = st.CreatedAt.Format("2006-01-02 15:04:05 MST")
	}
	return writeStatus(c.App.Writer, &out, c.String("output"))
}

func writeStatus(w io.Writer, st *statusOutput, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q; use text or json", format)
	}
	if st.BuildID == "" {
		fmt.Fprintln(w, "No corpus imported. Run: internmatch import --listings <file> --vectorizer <file>")
	}
	fmt.Fprintf(w, "listings:           %d\n", st.Listings)
	fmt.Fprintf(w, "vocabulary:         %d\n", st.Vocabulary)
	fmt.Fprintf(w, "dimensions:         %d\n", st.Dimensions)
	if st.BuildID != "" {
		fmt.Fprintf(w, "build_id:           %s\n", st.BuildID)
		fmt.Fprintf(w, "embedding_model:    %s\n", st.EmbeddingModel)
		fmt.Fprintf(w, "created_at:         %s\n", st.CreatedAt)
	}
	if st.Weights != nil {
		fmt.Fprintf(w, "stored_weights:     %.4f,%.4f\n", st.Weights.Lexical, st.Weights.Semantic)
	}
	fmt.Fprintf(w, "embedding_provider: %s\n", st.Provider)
	fmt.Fprintf(w, "database_path:      %s\n", st.DatabasePath)
	fmt.Fprintf(w, "disk_usage_bytes:   %d\n", st.DiskUsageBytes)
	return nil
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrMalformedProfile):
		return 2
	case errors.Is(err, recommend.ErrMatcherUnavailable):
		return 3
	default:
		return 1
	}
}
