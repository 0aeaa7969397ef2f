package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// defaultModels maps providers to a sensible starting model.
var defaultModels = map[ProviderType]string{
	ProviderGroq:   "llama3-8b-8192",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llama3",
}

// RunWizard runs an interactive configuration wizard, saves the result to
// path, and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to voiceline! Let's configure your phone agent.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"groq", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: defaultModels[cfg.Provider],
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database and knowledge store)",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Public URL for webhooks.
	urlPrompt := promptui.Prompt{
		Label:   "Public base URL the telephony provider can reach (e.g. https://agent.example.com)",
		Default: "",
	}
	if cfg.Telephony.PublicURL, err = urlPrompt.Run(); err != nil {
		return nil, fmt.Errorf("public url: %w", err)
	}

	// 5. Cache driver.
	cachePrompt := promptui.Select{
		Label: "Active-call cache",
		Items: []string{"memory (single instance)", "redis (multiple instances)"},
	}
	cacheIdx, _, err := cachePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cache selection: %w", err)
	}
	if cacheIdx == 1 {
		cfg.Cache.Driver = CacheRedis
		addrPrompt := promptui.Prompt{
			Label:   "Redis address",
			Default: "localhost:6379",
		}
		if cfg.Cache.RedisAddr, err = addrPrompt.Run(); err != nil {
			return nil, fmt.Errorf("redis address: %w", err)
		}
	}

	// 6. Turn timeout.
	timeoutPrompt := promptui.Prompt{
		Label:   "Per-turn timeout in seconds",
		Default: strconv.Itoa(cfg.TurnTimeoutSeconds),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("enter a positive integer")
			}
			return nil
		},
	}
	timeoutStr, err := timeoutPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("turn timeout: %w", err)
	}
	cfg.TurnTimeoutSeconds, _ = strconv.Atoi(timeoutStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Printf("Set %s before running `voiceline serve`.\n", APIKeyEnvVar(cfg.Provider))
	return cfg, nil
}
