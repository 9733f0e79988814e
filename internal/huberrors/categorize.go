package huberrors

import (
	"errors"
	"strings"
)

// Category is a coarse, user-facing classification of a pipeline failure.
type Category string

// Categories returned by Categorize.
const (
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryModelQuota    Category = "model_quota"
	CategoryDatabase      Category = "database"
	CategoryEmbedding     Category = "embedding"
	CategoryNotFound      Category = "not_found"
	CategoryGeneric       Category = "generic"
)

// Categorize maps err to a Category. Typed errors win; otherwise the message is inspected
// for provider markers (quota, RESOURCE_EXHAUSTED, API key, embed) so that errors surfacing
// from SDKs without a typed wrapper still land in the right bucket.
func Categorize(err error) Category {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrModelQuota):
		return CategoryModelQuota
	case errors.Is(err, ErrConfiguration):
		return CategoryConfiguration
	case errors.Is(err, ErrIndexing):
		return CategoryEmbedding
	case errors.Is(err, ErrStore):
		return CategoryDatabase
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return CategoryModelQuota
	case strings.Contains(lower, "api key") || strings.Contains(msg, "API_KEY"):
		return CategoryConfiguration
	case strings.Contains(lower, "embed"):
		return CategoryEmbedding
	case strings.Contains(lower, "database") || strings.Contains(lower, "connect"):
		return CategoryDatabase
	}

	return CategoryGeneric
}

// UserMessage returns a human-readable explanation for err. Generic errors pass through
// their raw message so operators still see the cause.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch Categorize(err) {
	case CategoryValidation, CategoryNotFound:
		return err.Error()
	case CategoryModelQuota:
		return "The AI provider quota has been exceeded. Please try again later or upgrade the API plan."
	case CategoryConfiguration:
		return configurationMessage(err)
	case CategoryEmbedding:
		return "Failed to generate embeddings. Please check the embedding provider key and network connectivity."
	case CategoryDatabase:
		return "Database error: unable to read or write feedback data. Please check the DATABASE_URL configuration."
	default:
		return err.Error()
	}
}

// configurationMessage surfaces a ConfigurationError verbatim, naming the setting to fix.
func configurationMessage(err error) string {
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || (cfgErr.Setting == "" && cfgErr.Message == "") {
		return "The AI provider API key is missing or invalid. Please check the server configuration."
	}

	if cfgErr.Setting == "" {
		return cfgErr.Message
	}

	if cfgErr.Message == "" {
		return "Please add " + cfgErr.Setting + " to the server configuration."
	}

	return cfgErr.Message + " (" + cfgErr.Setting + "). Please add " + cfgErr.Setting + " to the server configuration."
}
