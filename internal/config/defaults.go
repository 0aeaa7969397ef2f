package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderGroq,
		Model:              "llama3-8b-8192",
		EmbeddingProvider:  ProviderOpenAI,
		EmbeddingModel:     "text-embedding-3-small",
		DataDir:            "data",
		TurnTimeoutSeconds: 5,
		MaxReplyTokens:     150,
		KnowledgeTopK:      3,
		RateLimitRPM:       60,
		Cache: CacheConfig{
			Driver:     CacheMemory,
			TTLSeconds: 3600,
			MaxEntries: 1000,
		},
		Telephony: TelephonyConfig{
			BaseURL: "https://api.twilio.com",
		},
		Events: EventsConfig{
			Exchange: "voiceline.calls",
		},
	}
}
