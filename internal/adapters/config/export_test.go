package config

// WithGetenv replaces the environment lookup of a Loader.
func (l *Loader) WithGetenv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}
