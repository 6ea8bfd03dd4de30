// Package metrics holds the Prometheus collectors each process registers.
// Every constructor accepts a nil Registerer and returns a no-op recorder.
package metrics

const namespace = "tablebook"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
