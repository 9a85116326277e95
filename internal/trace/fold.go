package trace

import "github.com/serenqa/serentrace/internal/memory"

// FoldMemory compresses the trace through the given folder. The trace is
// read, never mutated; folding twice with no appends in between yields an
// identical Fold.
func (t *Trace) FoldMemory(folder *memory.Folder) memory.Fold {
	return folder.Fold(t.ID, t.events)
}
