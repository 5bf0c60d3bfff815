package main

import (
	"fmt"
	"time"
)

// generateTimestampedFileName names a report file after the command and the current time
func generateTimestampedFileName(command, extension string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", command, timestamp, extension)
}
