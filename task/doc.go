// Package task provides task-based model selection for code generation
// calls. Each call is classified by what it does (generate, suggest,
// summarize) and the classification picks the model tier.
//
// Example usage:
//
//	m := task.SelectModel(task.Generate) // sonnet
//
//	selector := task.NewSelector(
//	    model.WithTaskOverride(task.Suggest, model.ModelOpus),
//	)
//	m = selector.Select(task.Suggest)
package task
