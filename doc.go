// Package tashodb is an embedded document database. A database persists
// collections ("tables") of small, schemaless records keyed by a
// caller-supplied or auto-generated id. Each table is physically
// partitioned into fixed-capacity shards ("chunks") that are independently
// loaded, mutated, and flushed to disk.
//
// A typical session:
//
//	db, err := tashodb.Create("mydb", tashodb.DefaultOptions())
//	if err != nil {
//	    // handle err
//	}
//	defer db.Close()
//
//	users := db.Table("users")
//	v := tashodb.NewMap()
//	v.Set("name", "ada")
//	doc, err := users.Insert(tashodb.AutoKey(), v)
//
// The public surface is designed for use from a single goroutine; the only
// concurrency the engine introduces itself is one background commit worker
// per active chunk.
package tashodb
