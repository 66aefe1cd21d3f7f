package domain

// Per-provider model catalog. The first entry for each provider is its
// default when a credential stores none.
var providerModels = map[ProviderName][]string{
	ProviderOpenAI: {
		"gpt-4o-mini",
		"gpt-4o",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	},
	ProviderAnthropic: {
		"claude-3-5-sonnet-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	},
	ProviderGoogle: {
		"gemini-flash-latest",
		"gemini-flash-lite-latest",
		"gemini-2.5-flash",
		"gemini-1.5-pro",
	},
	ProviderAbacus: {
		"gpt-4o-mini",
	},
}

// FallbackModel is the fixed model used on every fallback attempt.
const FallbackModel = "gpt-4o-mini"

// DefaultModel returns the default model for a provider, or the fallback
// model for unknown providers.
func DefaultModel(provider ProviderName) string {
	if models := providerModels[provider]; len(models) > 0 {
		return models[0]
	}
	return FallbackModel
}

// ModelsForProvider lists the supported models for a provider.
func ModelsForProvider(provider ProviderName) []string {
	return providerModels[provider]
}

// ContextWindow returns the model context window in tokens, used to size
// the input budget. All currently supported models carry at least 128k;
// provider-specific overrides can be added here as the catalog grows.
func ContextWindow(model string) int {
	return 128000
}
