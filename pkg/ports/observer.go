package ports

import "github.com/aescanero/ordo/pkg/odb"

// Observer is notified synchronously after a successful design read.
// Nil arguments mean the record was not produced by that read.
type Observer interface {
	PostReadLef(tech *odb.Tech, lib *odb.Lib)
	PostReadDef(block *odb.Block)
	PostReadDb(db *odb.Database)
}
