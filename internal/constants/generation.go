package constants

// Generation defaults enforced by the mappers.
const (
	// DefaultMaxOutputTokens is used when the client omits max_tokens;
	// MaxOutputTokensCap clamps client-supplied values.
	DefaultMaxOutputTokens = 64000
	MaxOutputTokensCap     = 64000

	// FlashThinkingBudgetCap caps thinking budgets on flash-family models.
	FlashThinkingBudgetCap = 24576
)

// Fixed upstream model names.
const (
	// ImageGenerationModel handles every image-generation request, whatever
	// alias the client asked for.
	ImageGenerationModel = "gemini-3-pro-image"

	// WebSearchModel serves grounded (web_search) traffic.
	WebSearchModel = "gemini-2.5-flash"
)

// StickySessionLimit bounds the session→account table; the oldest entry is
// evicted when the table is full.
const StickySessionLimit = 1000
