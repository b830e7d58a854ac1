package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds the runtime configuration for both pipelines. It is resolved
// once at startup and never mutated afterwards.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// LLM
	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"openai" validate:"oneof=openai"` // any OpenAI-compatible endpoint, Ollama included
	LLMBaseURL     string  `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1" validate:"omitempty,url"`
	OpenAIKey      string  `env:"OPENAI_API_KEY" envDefault:"ollama"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"gemma3:12b" validate:"required"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.2" validate:"gte=0,lte=2"`

	// Extraction run
	InputDir        string   `env:"INPUT_DIR" envDefault:"./data/input" validate:"required"`
	InputExtensions []string `env:"INPUT_EXTENSIONS" envDefault:".png" envSeparator:"," validate:"min=1,dive,required"`
	OutputFile      string   `env:"OUTPUT_FILE" envDefault:"./data/output/aggregated/questions.md" validate:"required"`
	LogDir          string   `env:"LOG_DIR" envDefault:"./data/output" validate:"required"`
	OCRLanguages    []string `env:"OCR_LANGUAGES" envDefault:"eng" envSeparator:","`

	// Templates
	TemplatesDir    string `env:"TEMPLATES_DIR" envDefault:"./prompts" validate:"required"`
	ExtractTemplate string `env:"EXTRACT_TEMPLATE" envDefault:"clean_question" validate:"required"`
	ExplainTemplate string `env:"EXPLAIN_TEMPLATE" envDefault:"explain_spark_answer" validate:"required"`

	// Explanation run
	ExplainInputFile  string `env:"EXPLAIN_INPUT_FILE" envDefault:"./data/output/aggregated/questions.md" validate:"required"`
	ExplainOutputFile string `env:"EXPLAIN_OUTPUT_FILE" envDefault:"./data/output/aggregated/explanations.md" validate:"required"`
	ExplainHTMLFile   string `env:"EXPLAIN_HTML_FILE"`

	// Scheduling
	Workers        int           `env:"WORKERS" envDefault:"4" validate:"gte=1,lte=64"`
	InvokeTimeout  time.Duration `env:"INVOKE_TIMEOUT" envDefault:"2m" validate:"gt=0"`
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3" validate:"gte=1,lte=10"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms" validate:"gte=0"`
	UnparsedPolicy string        `env:"UNPARSED_POLICY" envDefault:"first" validate:"oneof=first last"`
	FailurePolicy  string        `env:"FAILURE_POLICY" envDefault:"skip" validate:"oneof=skip abort"`

	// Completion cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none" validate:"oneof=none redis"`
	RedisAddr     string        `env:"REDIS_ADDR" validate:"required_if=CacheProvider redis"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Audit
	AuditProvider string `env:"AUDIT_PROVIDER" envDefault:"file" validate:"oneof=file postgres"`
	DBURL         string `env:"DB_URL" validate:"required_if=AuditProvider postgres"`
	AuditTable    string `env:"AUDIT_TABLE" envDefault:"audit_log" validate:"required"`

	// Run events (NATS); empty disables
	EventsURL string `env:"EVENTS_URL"`

	// Artifact upload (S3); empty bucket disables
	ArtifactBucket string `env:"ARTIFACT_BUCKET"`
	ArtifactPrefix string `env:"ARTIFACT_PREFIX" envDefault:"quiz-digest"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
}

// Load reads configuration from environment variables with defaults. A value
// that cannot be parsed into its field type is an error.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded values. A failure here is a configuration error
// and must stop the run before any item is processed.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LogAttrs returns the configuration as slog attributes for startup
// diagnostics. Secrets are masked.
func (c Config) LogAttrs() []any {
	return []any{
		"log_level", c.LogLevel,
		"llm_provider", c.LLMProvider,
		"llm_base_url", c.LLMBaseURL,
		"llm_model", c.LLMModel,
		"openai_api_key", mask(c.OpenAIKey),
		"input_dir", c.InputDir,
		"input_extensions", strings.Join(c.InputExtensions, ","),
		"output_file", c.OutputFile,
		"log_dir", c.LogDir,
		"templates_dir", c.TemplatesDir,
		"extract_template", c.ExtractTemplate,
		"explain_template", c.ExplainTemplate,
		"explain_input_file", c.ExplainInputFile,
		"explain_output_file", c.ExplainOutputFile,
		"workers", c.Workers,
		"invoke_timeout", c.InvokeTimeout.String(),
		"retry_attempts", c.RetryAttempts,
		"unparsed_policy", c.UnparsedPolicy,
		"failure_policy", c.FailurePolicy,
		"cache_provider", c.CacheProvider,
		"audit_provider", c.AuditProvider,
		"events_enabled", c.EventsURL != "",
		"artifact_bucket", c.ArtifactBucket,
	}
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
