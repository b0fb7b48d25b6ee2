package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Maximum width of the wrapped article text
	Width       uint `env:"READALOUD_WIDTH" envDefault:"80"`
	EnableMouse bool `env:"READALOUD_MOUSE"`

	// Keep the paragraph being read on screen
	Follow bool `env:"READALOUD_FOLLOW" envDefault:"true"`

	// Start reading as soon as the program starts
	AutoPlay bool

	// Whether the wake lock starts enabled
	WakeLock bool

	// File the article was read from, "-" for stdin
	Path string
}
