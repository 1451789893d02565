// Package all wires all built-in storage backends into the storage factory.
//
// Importing it (even as a blank import) runs the init functions of each
// backend, which register their factories with the storage package. The
// following kinds become available:
//
//   - "postgres" (schemagen/internal/storage/postgres)
//   - "sqlite"   (schemagen/internal/storage/sqlite)
//   - "mssql"    (schemagen/internal/storage/mssql)
//   - "mysql"    (schemagen/internal/storage/mysql)
//
// Typical usage:
//
//	import (
//	    _ "schemagen/internal/storage/all"
//
//	    "schemagen/internal/storage"
//	)
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:app.db"})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "schemagen/internal/storage/mssql"
	_ "schemagen/internal/storage/mysql"
	_ "schemagen/internal/storage/postgres"
	_ "schemagen/internal/storage/sqlite"
)
