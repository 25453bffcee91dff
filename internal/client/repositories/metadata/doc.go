// Package metadata is a small key/value table in the local database.
//
// It holds everything that is not an annotation or an article: the sync
// feature flag, the account username, the sealed API token and the sync
// watermarks. Values are opaque bytes; callers decide the encoding.
//
//	repo := metadata.NewSQLiteRepository(db)
//	_ = repo.Set(ctx, common.MetadataKeyUsername, []byte("alice"))
//	v, _ := repo.Get(ctx, common.MetadataKeyUsername) // nil if never set
package metadata
