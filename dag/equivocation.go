// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The CasperLabs Authors
// (modifications)
// This file is part of BlockDAG.
//
// BlockDAG is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BlockDAG is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with BlockDAG. If not, see <http://www.gnu.org/licenses/>.

package dag

import "github.com/casperlabs/blockdag/dag/dagtypes"

// EquivocationsTracker is the scoped handle AccessEquivocationsTracker
// passes to its callback, valid only for the duration of that call (the
// mutex is held for its entire lifetime).
type EquivocationsTracker struct {
	engine *Engine
}

// Records returns a snapshot slice of every tracked equivocation record.
func (t *EquivocationsTracker) Records() []*dagtypes.EquivocationRecord {
	out := make([]*dagtypes.EquivocationRecord, 0, len(t.engine.st.equivocationsTracker))
	for _, r := range t.engine.st.equivocationsTracker {
		out = append(out, r)
	}
	return out
}

// Insert adds r to the tracker and appends it to the equivocations log.
func (t *EquivocationsTracker) Insert(r *dagtypes.EquivocationRecord) error {
	if err := t.engine.equivocationsLog.Append(dagtypes.EncodeEquivocationRecord(r)); err != nil {
		return err
	}
	t.engine.st.equivocationsTracker[r.Key()] = r
	return nil
}

// Update replaces the record for r's key with a copy carrying newHash added
// to its detected-block-hashes set, appending the updated record to the
// log. The stale prior record stays in the log on disk; recovery's
// last-write-wins squash (§4.3) collapses it on the next open.
func (t *EquivocationsTracker) Update(r *dagtypes.EquivocationRecord, newHash dagtypes.BlockHash) error {
	updated := r.WithHash(newHash)
	if err := t.engine.equivocationsLog.Append(dagtypes.EncodeEquivocationRecord(updated)); err != nil {
		return err
	}
	t.engine.st.equivocationsTracker[updated.Key()] = updated
	return nil
}

// AccessEquivocationsTracker runs fn with exclusive access to the
// equivocations tracker, under the engine's mutex, and returns whatever fn
// returns. Defined as a free function (not a method) because Go methods
// cannot carry their own type parameters.
func AccessEquivocationsTracker[A any](e *Engine, fn func(*EquivocationsTracker) (A, error)) (A, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&EquivocationsTracker{engine: e})
}
