package text

// Truncate caps s at max bytes, appending an ellipsis marker when cut. Used to
// keep logged tool arguments and model payloads readable.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
