package pipelet

import (
	"github.com/l7mp/pipelet/pkg/value"
)

type edgeKind int

const (
	edgeNone edgeKind = iota
	edgeSingle
	edgeFanOut
)

// downstream is the outgoing edge of a pipelet: nothing, a single destination, or an implicit
// fork that broadcasts to several destinations.
type downstream struct {
	kind edgeKind
	dest Pipelet
	fork *Fork
}

func (b *Base) AddDestination(dest Pipelet) error {
	if dest == nil {
		return NewInvalidWiringError(b.name, "nil destination")
	}

	switch b.down.kind {
	case edgeNone:
		b.down = downstream{kind: edgeSingle, dest: dest}

	case edgeSingle:
		if b.down.dest == dest {
			return NewInvalidWiringError(b.name, "duplicate destination "+dest.Name())
		}

		fork, err := newImplicitFork(b)
		if err != nil {
			return err
		}
		fork.dests = []Pipelet{b.down.dest, dest}
		b.down = downstream{kind: edgeFanOut, fork: fork}

	case edgeFanOut:
		if err := b.down.fork.AddDestination(dest); err != nil {
			return err
		}
	}

	b.log.V(2).Info("destination added", "destination", dest.Name(), "destinations", len(b.Destinations()))
	return nil
}

func (b *Base) RemoveDestination(dest Pipelet) error {
	switch b.down.kind {
	case edgeSingle:
		if b.down.dest != dest {
			return NewInvalidWiringError(b.name, "unknown destination "+nameOf(dest))
		}
		b.down = downstream{}

	case edgeFanOut:
		if err := b.down.fork.RemoveDestination(dest); err != nil {
			return err
		}
		if len(b.down.fork.dests) == 1 {
			b.down = downstream{kind: edgeSingle, dest: b.down.fork.dests[0]}
		}

	default:
		return NewInvalidWiringError(b.name, "unknown destination "+nameOf(dest))
	}

	b.log.V(2).Info("destination removed", "destination", nameOf(dest), "destinations", len(b.Destinations()))
	return nil
}

func (b *Base) Destinations() []Pipelet {
	switch b.down.kind {
	case edgeSingle:
		return []Pipelet{b.down.dest}
	case edgeFanOut:
		return b.down.fork.Destinations()
	default:
		return nil
	}
}

// EmitAdd pushes added values downstream. Empty batches are suppressed.
func (b *Base) EmitAdd(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	switch b.down.kind {
	case edgeSingle:
		return b.down.dest.Add(values)
	case edgeFanOut:
		return b.down.fork.Add(values)
	}
	return nil
}

// EmitRemove pushes removed values downstream. Empty batches are suppressed.
func (b *Base) EmitRemove(values []value.Value) error {
	if len(values) == 0 {
		return nil
	}
	switch b.down.kind {
	case edgeSingle:
		return b.down.dest.Remove(values)
	case edgeFanOut:
		return b.down.fork.Remove(values)
	}
	return nil
}

// EmitUpdate pushes update pairs downstream. Empty batches are suppressed.
func (b *Base) EmitUpdate(updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	switch b.down.kind {
	case edgeSingle:
		return b.down.dest.Update(updates)
	case edgeFanOut:
		return b.down.fork.Update(updates)
	}
	return nil
}

// EmitClear pushes a clear downstream.
func (b *Base) EmitClear() error {
	switch b.down.kind {
	case edgeSingle:
		return b.down.dest.Clear()
	case edgeFanOut:
		return b.down.fork.Clear()
	}
	return nil
}

func nameOf(p Pipelet) string {
	if p == nil {
		return "<nil>"
	}
	return p.Name()
}
