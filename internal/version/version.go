// Package version holds build metadata injected at link time.
package version

// Set via -ldflags "-X github.com/swali-ai/retrieval/internal/version.Version=... -X ...Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)
