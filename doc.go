// Package ticketflow turns issue-tracker tickets into pull requests.
//
// The root package is the orchestration core: it models a development
// workflow as a fixed sequence of steps (branch, generate, test, commit,
// pull request, ticket update), drives them through pluggable collaborator
// clients, persists progress after every transition, and emits lifecycle
// events.
//
// Collaborator implementations and supporting services live in subpackages:
//
//   - jira: TicketClient over the Jira REST API
//   - git: Git repository operations behind a CommandRunner
//   - pr: Pull request creation for GitHub and GitLab
//   - notify: Event notification (log, Slack, webhook)
//   - auth: JWT signing for webhook notifications
//   - prompt: Prompt template loading for code generation
//   - task: Task-based model selection
//   - artifact: Per-workflow artifact storage
//   - config: Layered configuration loading
//   - httpx: HTTP client utilities
//   - testutil: Test utilities and fixtures
//
// # Quick Start
//
//	store := ticketflow.NewProgressStore(storage)
//	executor := ticketflow.NewStepExecutor(services, workspace)
//
//	engine, err := ticketflow.NewEngine(services, store, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := engine.StartDevelopmentWorkflow(ctx, "PROJ-123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine.Wait(w.ID)
//
// Steps run in the background; observe progress through the engine's event
// bus or the progress store. See individual package documentation for
// detailed usage.
package ticketflow
