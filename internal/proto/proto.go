// Package proto defines the JSON types of the HTTP API that are not part
// of the UI message stream itself.
package proto

// Error represents an error response.
type Error struct {
	Message string `json:"message"`
}

// VersionInfo describes the running server build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// SessionCreated is the response to a session create request.
type SessionCreated struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
