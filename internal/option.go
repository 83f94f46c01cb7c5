package internal

// Option adjusts the application state Run assembles before starting.
type Option func(*application)

// application collects everything Run needs that callers may inject.
type application struct {
	config *Config
}

// WithConfig supplies the loaded configuration to Run.
func WithConfig(cfg *Config) Option {
	return func(app *application) {
		app.config = cfg
	}
}
