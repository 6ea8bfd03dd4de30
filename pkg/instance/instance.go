package instance

import "os"

const (
	envWorkerID = "TABLEBOOK_WORKER_ID"
	envDyno     = "DYNO"
)

// GetID returns the worker instance identifier. An explicit worker id wins
// over the dyno name; both missing yields "worker-0".
func GetID() string {
	if id := os.Getenv(envWorkerID); id != "" {
		return id
	}
	if dyno := os.Getenv(envDyno); dyno != "" {
		return dyno
	}
	return "worker-0"
}
