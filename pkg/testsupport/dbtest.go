package testsupport

import (
	"fmt"

	"github.com/google/uuid"
)

// SQLiteMemoryDSN returns a DSN for a named shared-cache memory database.
// Each call yields a fresh database so parallel tests do not share rows.
func SQLiteMemoryDSN(prefix string) string {
	if prefix == "" {
		prefix = "blog"
	}
	return fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", prefix, uuid.NewString())
}
