// Package pr opens and manages pull requests on GitHub and GitLab behind a
// single Provider interface.
//
// Core types:
//   - Provider: create, read, update, merge and comment on pull requests
//   - Options: configuration for creating a pull request
//   - PullRequest: the provider-neutral result with URL and number
//   - Builder: fluent construction of Options
//
// The platform is usually derived from the repository's remote URL:
//
//	provider, err := pr.ProviderForRemote(remoteURL, token)
//	if err != nil {
//	    return err
//	}
//	pull, err := provider.CreatePR(ctx, pr.NewBuilder("Add feature").
//	    WithTicket("PROJ-123").
//	    WithHead("feature/proj-123-add-feature").
//	    Build())
package pr
