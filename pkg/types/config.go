package types

import "time"

// LLMProvider identifies the chat-completion backend.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGenAI  LLMProvider = "genai"
)

// LLMConfig holds settings for the chat-completion gateway.
type LLMConfig struct {
	// Provider selects the backend: openai (any OpenAI-compatible endpoint) or genai.
	Provider LLMProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (LLM_MODEL in the environment).
	Model string `json:"model" yaml:"model"`

	// BaseURL is the API base, e.g. "https://chat-ai.academiccloud.de/v1" (LLM_URL).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is the credential (LLM_API_KEY).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature is kept low; extraction and classification are not creative tasks.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// DefaultMaxTokens is the output budget when a call site sets none (default 1024).
	DefaultMaxTokens int `json:"default_max_tokens" yaml:"default_max_tokens"`

	// ExtractionMaxTokens is the budget for module info extraction (default 4096).
	ExtractionMaxTokens int `json:"extraction_max_tokens" yaml:"extraction_max_tokens"`

	// JudgmentMaxTokens is the budget for the examination judgment (default 8192).
	JudgmentMaxTokens int `json:"judgment_max_tokens" yaml:"judgment_max_tokens"`

	// JudgmentModel overrides Model for the examination judgment.
	JudgmentModel string `json:"judgment_model,omitempty" yaml:"judgment_model,omitempty"`

	// StreamOnly marks an endpoint that rejects non-streaming requests.
	StreamOnly bool `json:"stream_only" yaml:"stream_only"`

	// Timeout bounds a single HTTP round trip. Zero means no client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries bounds the backend's HTTP 429 retries: 0 uses the default
	// (5), a negative value disables retrying.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// Defaulted returns c with zero values replaced by defaults.
func (c LLMConfig) Defaulted() LLMConfig {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.DefaultMaxTokens <= 0 {
		c.DefaultMaxTokens = 1024
	}
	if c.ExtractionMaxTokens <= 0 {
		c.ExtractionMaxTokens = 4096
	}
	if c.JudgmentMaxTokens <= 0 {
		c.JudgmentMaxTokens = 8192
	}
	if c.JudgmentModel == "" {
		c.JudgmentModel = c.Model
	}
	return c
}

// IndexBackend identifies the similarity index implementation.
type IndexBackend string

const (
	IndexChroma IndexBackend = "chroma"
	IndexSQLite IndexBackend = "sqlite"
)

// EmbeddingConfig holds settings for the embedding provider used by the index.
type EmbeddingConfig struct {
	// Provider: "openai" (any OpenAI-compatible /embeddings endpoint),
	// "genai" or "cohere".
	Provider string `json:"provider" yaml:"provider"`

	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// QueryPrefix and PassagePrefix are prepended before embedding
	// (e5-style models expect "query: " / "passage: ").
	QueryPrefix   string `json:"query_prefix" yaml:"query_prefix"`
	PassagePrefix string `json:"passage_prefix" yaml:"passage_prefix"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// IndexConfig holds settings for the similarity index.
type IndexConfig struct {
	Backend IndexBackend `json:"backend" yaml:"backend"`

	// Chroma connection.
	ChromaURL        string `json:"chroma_url" yaml:"chroma_url"`
	ChromaTenant     string `json:"chroma_tenant" yaml:"chroma_tenant"`
	ChromaDatabase   string `json:"chroma_database" yaml:"chroma_database"`
	ChromaCollection string `json:"chroma_collection" yaml:"chroma_collection"`
	ChromaToken      string `json:"chroma_token,omitempty" yaml:"chroma_token,omitempty"`

	// SQLitePath is the local catalog database file.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
}

// RecognitionConfig holds settings for the recognition workflows.
type RecognitionConfig struct {
	// MaxInputChars caps the module text handed to extraction (default 10000).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars"`

	// SuggestionLimit is the number of neighbors requested (default 5).
	SuggestionLimit int `json:"suggestion_limit" yaml:"suggestion_limit"`

	// Institution is the default institution filter; "all" or empty disables it.
	Institution string `json:"institution" yaml:"institution"`

	// AttributionModel and AttributionProvider are named in the verdict summary.
	AttributionModel    string `json:"attribution_model" yaml:"attribution_model"`
	AttributionProvider string `json:"attribution_provider" yaml:"attribution_provider"`
}

// Defaulted returns c with zero values replaced by defaults.
func (c RecognitionConfig) Defaulted() RecognitionConfig {
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = 10000
	}
	if c.SuggestionLimit <= 0 {
		c.SuggestionLimit = 5
	}
	if c.AttributionModel == "" {
		c.AttributionModel = "gemma-3-27b-it"
	}
	if c.AttributionProvider == "" {
		c.AttributionProvider = "[KISSKI](https://kisski.gwdg.de)"
	}
	return c
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout and WriteTimeout bound a request; judging can take a while.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Config groups all stage configurations.
type Config struct {
	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Index       IndexConfig       `json:"index" yaml:"index"`
	Recognition RecognitionConfig `json:"recognition" yaml:"recognition"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}
