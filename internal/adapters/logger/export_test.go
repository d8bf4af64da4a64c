package logger

// Exported for white-box tests of the error chain rendering.
var (
	CollectErrorEntries = collectErrorEntries
	FormatErrorEntries  = formatErrorEntries
)

// ErrorEntry exposes an entry's fields.
func ErrorEntry(e errorEntry) (string, map[string]any) {
	return e.message, e.metadata
}
