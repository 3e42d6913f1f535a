package api

// Config holds server configuration.
type Config struct {
	Port           int
	DataDir        string   // Root directory raw corpus paths are resolved under
	ReportsDir     string   // Where job reports are written
	AllowedOrigins []string // CORS allowed origins (empty = allow all)
}

// ServerConfig is the active server configuration.
var ServerConfig Config
