// Package artifact stores per-workflow run artifacts and manages their
// lifecycle.
//
// Core types:
//   - Manager: saves and loads artifacts for workflow runs (step results,
//     test output, generated file copies, the rendered PR body)
//   - LifecycleManager: cleanup, archival, and retention
//
// Example usage:
//
//	mgr := artifact.NewManager(artifact.Config{
//	    BaseDir:       ".ticketflow",
//	    CompressAbove: 256 * 1024,
//	})
//	err := mgr.SaveStepResult(workflowID, "run-tests", metadata)
//	data, err := mgr.Load(workflowID, artifact.ArtifactTestOutput)
package artifact
