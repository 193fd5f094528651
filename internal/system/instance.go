package system

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID generates a unique identifier for this host instance,
// used to attribute shared-store activity to one running process.
func GenerateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}
