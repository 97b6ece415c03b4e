package format

import "io/fs"

// Common file permission constants used throughout the application.
const (
	// FileUserReadWrite is for reports and logs that may contain secrets (rw-------)
	FileUserReadWrite fs.FileMode = 0600

	// FileExecutable is for generated hook scripts (rwxr-xr-x)
	FileExecutable fs.FileMode = 0755
)
