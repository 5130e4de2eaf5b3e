// Package services wraps the external HTTP APIs the mixtape service depends on.
//
// # Catalog
//
// [CatalogClient] searches the Spotify catalog with an application-level token obtained through the
// client-credentials grant. The token is cached on the client and exchanged again once it reports expired.
// Search never fails: transport, auth and status errors are logged and produce an empty result.
//
// # Completion
//
// [Completer] is the single operation the service needs from a language model: one system instruction, one
// user message, one text reply. [OpenAICompleter] implements it over the chat completions API. Errors are
// classified as [shared.ErrUpstreamUnavailable] (the call failed) or [shared.ErrUpstreamFormat] (the call
// succeeded with nothing usable in it).
//
// # Analysis
//
// [PromptAnalyzer] turns a free-text mixtape prompt into a [models.Analysis]. Failures are returned as a
// tagged analysis rather than an error.
package services
