package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"quiz-digest/internal/artifact"
	"quiz-digest/internal/audit"
	"quiz-digest/internal/cache"
	"quiz-digest/internal/config"
	"quiz-digest/internal/events"
	"quiz-digest/internal/llm"
	"quiz-digest/internal/logger"
	"quiz-digest/internal/ocr"
	"quiz-digest/internal/ocr/tesseract"
	"quiz-digest/internal/pipeline"
	"quiz-digest/internal/prompt"
	"quiz-digest/internal/quiz"
)

// tokenEncoding is used to estimate token counts when the model server does
// not report usage.
const tokenEncoding = "cl100k_base"

// Deps bundles the runtime dependencies shared by both commands.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	RunID     uuid.UUID
	LLM       llm.Client
	Invoker   *llm.Invoker
	Templates *prompt.Builder
	Extractor *ocr.Extractor
	Audit     *audit.Logger
	Events    events.Publisher
	Artifacts artifact.Store

	closers []io.Closer
}

// Build loads env, config, and shared components. A missing .env file is not
// an error; an invalid configuration is.
func Build(ctx context.Context) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	runID := uuid.New()
	log = log.With("run_id", runID.String())
	log.Info("configuration loaded", cfg.LogAttrs()...)

	d := Deps{Config: cfg, Log: log, RunID: runID}

	client, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	d.closers = append(d.closers, c)

	sink, err := buildAuditSink(cfg, log)
	if err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize audit log: %w", err)
	}
	if cl, ok := sink.(io.Closer); ok {
		d.closers = append(d.closers, cl)
	}

	pub, err := buildEvents(cfg, log)
	if err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize events: %w", err)
	}
	d.closers = append(d.closers, pub)

	store, err := buildArtifacts(ctx, cfg, log)
	if err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	d.LLM = client
	d.Invoker = llm.NewInvoker(client, c, cfg.CacheTTL, log)
	d.Templates = prompt.NewBuilder(prompt.NewStore(cfg.TemplatesDir))
	d.Extractor = ocr.NewExtractor(log, tesseract.New(),
		ocr.WithEngine(ocr.FormatPDF, ocr.PDFEngine{}),
		ocr.WithLanguages(cfg.OCRLanguages...),
	)
	d.Audit = audit.NewLogger(sink, runID, log)
	d.Events = pub
	d.Artifacts = store
	return d, nil
}

// Close releases connections opened by Build.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.Log.Warn("failed to close dependency", "err", err)
		}
	}
}

func (d Deps) options() (pipeline.Options, error) {
	policy, err := pipeline.ParseFailurePolicy(d.Config.FailurePolicy)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Model:          d.Config.LLMModel,
		Workers:        d.Config.Workers,
		InvokeTimeout:  d.Config.InvokeTimeout,
		RetryAttempts:  d.Config.RetryAttempts,
		RetryBaseDelay: d.Config.RetryBaseDelay,
		FailurePolicy:  policy,
	}, nil
}

func (d Deps) publication() pipeline.Publication {
	return pipeline.Publication{
		RunID:          d.RunID,
		Events:         d.Events,
		Artifacts:      d.Artifacts,
		ArtifactPrefix: d.Config.ArtifactPrefix,
	}
}

// Extraction configures the extraction stage.
func (d Deps) Extraction() (*pipeline.Extraction, error) {
	opts, err := d.options()
	if err != nil {
		return nil, err
	}
	order, err := quiz.ParseOrderPolicy(d.Config.UnparsedPolicy)
	if err != nil {
		return nil, err
	}
	return &pipeline.Extraction{
		InputDir:   d.Config.InputDir,
		Extensions: d.Config.InputExtensions,
		OutputFile: d.Config.OutputFile,
		Template:   d.Config.ExtractTemplate,
		Order:      order,
		Options:    opts,
		Extractor:  d.Extractor,
		Templates:  d.Templates,
		Invoker:    d.Invoker,
		Audit:      d.Audit,
		Publish:    d.publication(),
		Log:        d.Log.With("stage", pipeline.StageExtract),
	}, nil
}

// Explanation configures the explanation stage.
func (d Deps) Explanation() (*pipeline.Explanation, error) {
	opts, err := d.options()
	if err != nil {
		return nil, err
	}
	return &pipeline.Explanation{
		InputFile:  d.Config.ExplainInputFile,
		OutputFile: d.Config.ExplainOutputFile,
		HTMLFile:   d.Config.ExplainHTMLFile,
		Template:   d.Config.ExplainTemplate,
		Options:    opts,
		Templates:  d.Templates,
		Invoker:    d.Invoker,
		Publish:    d.publication(),
		Log:        d.Log.With("stage", pipeline.StageExplain),
	}, nil
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		opts := []llm.OpenAIOption{llm.WithTemperature(cfg.LLMTemperature)}
		if counter, err := llm.NewTiktokenCounter(tokenEncoding); err != nil {
			log.Warn("token counter unavailable; relying on server usage", "err", err)
		} else {
			opts = append(opts, llm.WithTokenCounter(counter))
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.LLMBaseURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI-compatible LLM client", "model", cfg.LLMModel, "base_url", cfg.LLMBaseURL)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis completion cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
		return c, nil
	case "none", "":
		return cache.NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

func buildAuditSink(cfg config.Config, log *slog.Logger) (audit.Sink, error) {
	switch cfg.AuditProvider {
	case "file":
		sink, err := audit.NewFileSink(cfg.LogDir)
		if err != nil {
			return nil, err
		}
		log.Info("using file audit log", "dir", cfg.LogDir)
		return sink, nil
	case "postgres":
		sink, err := audit.NewPostgres(cfg.DBURL, cfg.AuditTable)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres audit log", "table", cfg.AuditTable)
		return sink, nil
	default:
		return nil, fmt.Errorf("invalid AUDIT_PROVIDER: %s (valid options: file, postgres)", cfg.AuditProvider)
	}
}

func buildEvents(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if cfg.EventsURL == "" {
		return events.NewNoOpPublisher(), nil
	}
	nc, err := nats.Connect(cfg.EventsURL, nats.Name("quiz-digest"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("publishing run events to NATS", "url", cfg.EventsURL)
	return events.NewNATS(log, nc), nil
}

func buildArtifacts(ctx context.Context, cfg config.Config, log *slog.Logger) (artifact.Store, error) {
	if cfg.ArtifactBucket == "" {
		return artifact.NewNoOpStore(), nil
	}
	store, err := artifact.NewS3Store(ctx, cfg.ArtifactBucket, cfg.AWSRegion, cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}
	log.Info("uploading artifacts to S3", "bucket", cfg.ArtifactBucket, "prefix", cfg.ArtifactPrefix)
	return store, nil
}
