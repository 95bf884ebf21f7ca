package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type classifies the work a model call performs. The type determines
// which model tier the call runs on.
type Type string

const (
	// Generate produces implementation and test files for a ticket.
	Generate Type = "generate"

	// Suggest turns failing test results into concrete fix suggestions.
	Suggest Type = "suggest"

	// Summarize condenses ticket text or run output. Cheap and frequent,
	// so it runs on the fast tier.
	Summarize Type = "summarize"
)

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Generate:  model.ModelSonnet,
	Suggest:   model.ModelSonnet,
	Summarize: model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Summarize:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for pipeline tasks.
// It uses the standard task-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a task type.
// Uses the default model map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	// Fall back to tier-based selection
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}
