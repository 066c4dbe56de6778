package domain

import "time"

// ModelCategory groups generation models by use case. The set is closed:
// routing matches on these variants, never on free-form strings.
type ModelCategory string

// Available model categories.
const (
	// CategoryGeneralChat is general conversational assistance.
	CategoryGeneralChat ModelCategory = "general_chat"

	// CategoryCodeAssistance is programming help and code generation.
	CategoryCodeAssistance ModelCategory = "code_assistance"

	// CategoryCreativeWriting is long-form creative text.
	CategoryCreativeWriting ModelCategory = "creative_writing"

	// CategoryLightweight is small, cheap models. The router falls back
	// here when nothing fits the caller's resource budget.
	CategoryLightweight ModelCategory = "lightweight"
)

// IsValid returns true if the category is recognised.
func (c ModelCategory) IsValid() bool {
	switch c {
	case CategoryGeneralChat, CategoryCodeAssistance, CategoryCreativeWriting, CategoryLightweight:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ModelCategory) String() string {
	return string(c)
}

// Description returns a human-readable description of the category.
func (c ModelCategory) Description() string {
	switch c {
	case CategoryGeneralChat:
		return "General Chat (everyday questions)"
	case CategoryCodeAssistance:
		return "Code Assistance (programming help)"
	case CategoryCreativeWriting:
		return "Creative Writing (long-form text)"
	case CategoryLightweight:
		return "Lightweight (small, low-cost models)"
	default:
		return unknownDescription
	}
}

// AllModelCategories returns all available model categories.
func AllModelCategories() []ModelCategory {
	return []ModelCategory{
		CategoryGeneralChat,
		CategoryCodeAssistance,
		CategoryCreativeWriting,
		CategoryLightweight,
	}
}

// ModelDescriptor is the static catalogue entry for a generation model.
// Descriptors load from configuration at startup; they are never deleted
// at runtime, only deactivated.
type ModelDescriptor struct {
	// Name is the backend model identifier (e.g. "codellama").
	// Unique within the registry.
	Name string

	// Provider is the backend serving this model.
	Provider AIProvider

	// Category is the use case this model serves.
	Category ModelCategory

	// Cost is the declared resource cost estimate in abstract units
	// (1..100, higher is more expensive to run).
	Cost int

	// Active marks whether the router may select this model.
	Active bool
}

// Validate checks that the descriptor is well formed.
func (d ModelDescriptor) Validate() error {
	if d.Name == "" {
		return Errorf(CodeInvalidInput, "model name is required")
	}
	if !d.Provider.IsValid() {
		return Errorf(CodeInvalidInput, "unknown provider %q for model %q", d.Provider, d.Name)
	}
	if !d.Category.IsValid() {
		return Errorf(CodeInvalidInput, "unknown category %q for model %q", d.Category, d.Name)
	}
	if d.Cost < 0 {
		return Errorf(CodeInvalidInput, "negative cost for model %q", d.Name)
	}
	return nil
}

// ModelStats holds rolling runtime statistics for one model.
// Counters are exact; latency is an exponentially weighted moving average
// so recent invocations dominate.
type ModelStats struct {
	// SuccessCount is the total number of successful invocations.
	SuccessCount int64

	// FailureCount is the total number of failed invocations.
	FailureCount int64

	// LatencyEWMAMs is the smoothed observed latency in milliseconds.
	// Zero until the first invocation.
	LatencyEWMAMs float64

	// LastInvokedAt is when the model was last invoked.
	LastInvokedAt time.Time
}

// Invocations returns the total number of recorded invocations.
func (s ModelStats) Invocations() int64 {
	return s.SuccessCount + s.FailureCount
}

// SuccessRate returns the fraction of successful invocations in [0,1].
// A model with no history scores a full 1.0 so fresh models are routable.
func (s ModelStats) SuccessRate() float64 {
	total := s.Invocations()
	if total == 0 {
		return 1.0
	}
	return float64(s.SuccessCount) / float64(total)
}

// ModelSnapshot pairs a descriptor with a copy of its stats, as returned
// by the registry's read operations.
type ModelSnapshot struct {
	Descriptor ModelDescriptor
	Stats      ModelStats
}

// DefaultModelCatalog returns the built-in model catalogue used when no
// models file is configured. All entries target a local Ollama instance.
func DefaultModelCatalog() []ModelDescriptor {
	return []ModelDescriptor{
		{Name: "llama3.2", Provider: AIProviderOllama, Category: CategoryGeneralChat, Cost: 35, Active: true},
		{Name: "codellama", Provider: AIProviderOllama, Category: CategoryCodeAssistance, Cost: 40, Active: true},
		{Name: "mistral", Provider: AIProviderOllama, Category: CategoryCreativeWriting, Cost: 30, Active: true},
		{Name: "llama3.2:1b", Provider: AIProviderOllama, Category: CategoryLightweight, Cost: 10, Active: true},
	}
}
