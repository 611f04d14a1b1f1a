// Package memory holds memory records and the vector store that indexes
// them.
//
// Invariants:
//   - Position i of the embedding index always corresponds to position i of
//     the record sequence. Both live in one arena so the pairing holds by
//     construction.
//   - The store is append-only. Save/Load round-trips preserve insertion
//     order exactly.
//   - Search is exact (linear in the number of stored records) and orders
//     results by Euclidean distance, breaking ties by insertion order.
//   - Search runs under a read lock; Add, Save and Load are exclusive.
//
// A memory bank on disk is two artifacts sharing a base path:
// "<base>.index" (a SQLite database holding sqlite-vec float32 blobs) and
// "<base>.json" (the records).
//
// Usage:
//
//	store, _ := memory.NewStore(memory.StoreConfig{Name: "task", Embedder: embedder})
//	_ = store.Load("data/memory_bank/task_bank")
//	_ = store.Add(ctx, record, record.TaskDescription)
//	matches, _ := store.Search(ctx, "What is Bob's ID?", 5)
//	_ = store.Save("data/memory_bank/task_bank")
package memory
