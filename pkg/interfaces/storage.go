package interfaces

import "github.com/goliatone/go-blog/pkg/storage"

// StorageProvider aliases storage.Provider for callers that depend on the
// interfaces package only.
type StorageProvider = storage.Provider

// Rows aliases storage.Rows.
type Rows = storage.Rows

// Result aliases storage.Result.
type Result = storage.Result

// Transaction aliases storage.Transaction.
type Transaction = storage.Transaction
