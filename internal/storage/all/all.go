// Package all registers every publication backend with the storage
// factory. The CLI blank-imports it; config selects which backend runs.
package all

import (
	_ "qmetl/internal/storage/postgres"
	_ "qmetl/internal/storage/sqlite"
)
