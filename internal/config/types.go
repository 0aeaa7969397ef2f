package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGroq   ProviderType = "groq"
	ProviderOllama ProviderType = "ollama"
)

// CacheDriver identifies the active-call cache backend.
type CacheDriver string

const (
	CacheMemory CacheDriver = "memory"
	CacheRedis  CacheDriver = "redis"
)

// Config is the top-level voiceline configuration, corresponding to .voiceline.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`

	// TurnTimeoutSeconds bounds each webhook turn's upstream work (knowledge
	// search plus completion). Telephony providers abandon slow webhooks, so
	// this stays at a few seconds.
	TurnTimeoutSeconds int `yaml:"turn_timeout_seconds" koanf:"turn_timeout_seconds"`

	// MaxReplyTokens caps spoken replies; long answers read badly over a call.
	MaxReplyTokens int `yaml:"max_reply_tokens" koanf:"max_reply_tokens"`

	KnowledgeTopK int `yaml:"knowledge_top_k" koanf:"knowledge_top_k"`
	RateLimitRPM  int `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`

	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Telephony TelephonyConfig `yaml:"telephony" koanf:"telephony"`
	Events    EventsConfig    `yaml:"events" koanf:"events"`
}

// CacheConfig selects and tunes the active-call cache.
type CacheConfig struct {
	Driver     CacheDriver `yaml:"driver" koanf:"driver"`
	RedisAddr  string      `yaml:"redis_addr" koanf:"redis_addr"`
	TTLSeconds int         `yaml:"ttl_seconds" koanf:"ttl_seconds"`
	MaxEntries int         `yaml:"max_entries" koanf:"max_entries"`
}

// TelephonyConfig holds settings for the telephony provider boundary.
type TelephonyConfig struct {
	BaseURL            string `yaml:"base_url" koanf:"base_url"`
	PublicURL          string `yaml:"public_url" koanf:"public_url"`
	ValidateSignatures bool   `yaml:"validate_signatures" koanf:"validate_signatures"`
}

// EventsConfig enables the optional AMQP event publisher when AMQPURL is set.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url" koanf:"amqp_url"`
	Exchange string `yaml:"exchange" koanf:"exchange"`
}
