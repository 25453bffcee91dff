// Package store is the local annotation store the sync engine and the CLI
// work against.
//
// It wraps the SQLite repositories (annotations, articles) and publishes a
// models.ChangeSet to subscribers after every committed mutation. Records are
// keyed "annotations/<id>"; Watch takes a key prefix.
//
// Every subscription has its own dispatcher goroutine and an unbounded queue,
// so change sets are delivered in commit order and a slow subscriber never
// blocks a writer.
//
//	db, _ := store.InitDatabase(ctx, "annosync.db")
//	s := store.New(db, logger)
//	unsubscribe := s.Watch("annotations/", func(cs models.ChangeSet) { ... })
//	defer unsubscribe()
package store
