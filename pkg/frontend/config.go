package frontend

// Config represents frontend configuration. The report page is served by the
// API server for every path outside /api/v1.
type Config struct {
	Enabled bool `yaml:"enabled" default:"true"`
}
