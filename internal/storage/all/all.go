// Package all registers every warehouse backend.
package all

import (
	_ "moviedw/internal/storage/mssql"
	_ "moviedw/internal/storage/postgres"
	_ "moviedw/internal/storage/sqlite"
)
