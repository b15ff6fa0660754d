package pipelet

import (
	"github.com/go-logr/logr"

	"github.com/l7mp/pipelet/pkg/key"
	"github.com/l7mp/pipelet/pkg/value"
)

// handler is implemented by the concrete pipelets embedding Base. Base routes the push protocol
// to the handler once a delta is known not to be buffered.
type handler interface {
	onAdd(values []value.Value) error
	onRemove(values []value.Value) error
	onUpdate(updates []Update) error
	onClear() error
}

type pipelet interface {
	Pipelet
	handler
}

// Base implements the parts of the pipelet contract shared by all pipelets: naming, wiring,
// bootstrapping from a source, transaction handling and downstream emission.
type Base struct {
	name   string
	key    key.Key
	self   pipelet
	source Source
	down   downstream
	boot   bootstrap
	log    logr.Logger
}

// bootstrap buffers live deltas received while the state of a new source is being fetched.
type bootstrap struct {
	active bool
	queue  []Delta
}

func (b *Base) init(name string, self pipelet, o Options) {
	b.name = name
	b.key = o.Key
	b.self = self
	b.log = o.Logger.WithValues("pipelet", name)
}

func (b *Base) Name() string { return b.name }

func (b *Base) Key() key.Key { return b.key }

func (b *Base) Source() Source { return b.source }

func (b *Base) String() string { return b.name }

func (b *Base) SetSource(src Source) error {
	if b.source != nil {
		old := b.source
		if err := b.self.Clear(); err != nil {
			return err
		}
		if e, ok := old.(Emitter); ok {
			if err := e.RemoveDestination(b.self); err != nil {
				return err
			}
		}
		b.source = nil
		b.log.V(2).Info("source detached", "source", sourceName(old))
	}

	if src == nil {
		return nil
	}

	b.source = src
	if err := b.bootstrap(src); err != nil {
		b.source = nil
		return err
	}

	b.log.V(2).Info("source attached", "source", sourceName(src))
	return nil
}

// bootstrap registers the live edge, feeds the state of the source through the handler and
// then replays the live deltas that arrived during the fetch.
func (b *Base) bootstrap(src Source) error {
	e, live := src.(Emitter)
	if live {
		if err := e.AddDestination(b.self); err != nil {
			return err
		}
		b.boot.active = true
	}

	var fed []value.Value
	err := src.Fetch(func(chunk []value.Value) error {
		if len(chunk) == 0 {
			return nil
		}
		if err := b.self.onAdd(chunk); err != nil {
			return err
		}
		fed = append(fed, chunk...)
		return nil
	})

	queue := b.boot.queue
	b.boot = bootstrap{}

	if err != nil {
		if live {
			_ = e.RemoveDestination(b.self)
		}
		// retract the partial state delivered before the failure
		if len(fed) > 0 {
			if rerr := b.self.onRemove(fed); rerr != nil {
				b.log.Error(rerr, "failed to retract partial bootstrap")
			}
		}
		return err
	}

	if len(queue) > 0 {
		b.log.V(4).Info("replaying buffered deltas", "deltas", len(queue))
	}
	for _, d := range queue {
		if err := b.dispatch(d); err != nil {
			return err
		}
	}

	return nil
}

// deferred buffers the delta if a bootstrap is in progress.
func (b *Base) deferred(d Delta) bool {
	if !b.boot.active {
		return false
	}
	b.boot.queue = append(b.boot.queue, d)
	return true
}

func (b *Base) dispatch(d Delta) error {
	switch d.Kind {
	case ActionAdd:
		return b.self.onAdd(d.Values)
	case ActionRemove:
		return b.self.onRemove(d.Values)
	case ActionUpdate:
		return b.self.onUpdate(d.Updates)
	case ActionClear:
		return b.self.onClear()
	default:
		return NewUnsupportedActionError(b.name, d.Kind)
	}
}

func (b *Base) Add(values []value.Value) error {
	if b.deferred(Delta{Kind: ActionAdd, Values: append([]value.Value(nil), values...)}) {
		return nil
	}
	b.log.V(4).Info("add", "values", len(values))
	return b.self.onAdd(values)
}

func (b *Base) Remove(values []value.Value) error {
	if b.deferred(Delta{Kind: ActionRemove, Values: append([]value.Value(nil), values...)}) {
		return nil
	}
	b.log.V(4).Info("remove", "values", len(values))
	return b.self.onRemove(values)
}

func (b *Base) Update(updates []Update) error {
	if b.deferred(Delta{Kind: ActionUpdate, Updates: append([]Update(nil), updates...)}) {
		return nil
	}
	b.log.V(4).Info("update", "updates", len(updates))
	return b.self.onUpdate(updates)
}

func (b *Base) Clear() error {
	if b.deferred(Delta{Kind: ActionClear}) {
		return nil
	}
	b.log.V(4).Info("clear")
	return b.self.onClear()
}

// Fetch delegates to the upstream. Without a source only the terminator is delivered.
func (b *Base) Fetch(r Receiver) error {
	return b.fetchThrough(r, nil)
}

// fetchThrough fetches the upstream and applies the transform to each chunk. Chunks that become
// empty are dropped so that only the upstream terminator reaches the receiver.
func (b *Base) fetchThrough(r Receiver, transform func([]value.Value) ([]value.Value, error)) error {
	if b.source == nil {
		return r(nil)
	}

	return b.source.Fetch(func(chunk []value.Value) error {
		if len(chunk) == 0 {
			return r(nil)
		}
		if transform == nil {
			return r(chunk)
		}

		out, err := transform(chunk)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		return r(out)
	})
}

func (b *Base) SupportsAction(kind ActionKind) bool {
	switch kind {
	case ActionAdd, ActionRemove, ActionUpdate:
		return true
	default:
		return false
	}
}

// Notify validates every action of the transaction and then applies the actions in order.
// There is no rollback: an error in a later action leaves the earlier ones applied.
func (b *Base) Notify(tx Transaction) error {
	for _, d := range tx {
		if !b.self.SupportsAction(d.Kind) {
			return NewUnsupportedActionError(b.name, d.Kind)
		}
	}

	b.log.V(4).Info("notify", "actions", len(tx))

	for _, d := range tx {
		var err error
		switch d.Kind {
		case ActionAdd:
			err = b.self.Add(d.Values)
		case ActionRemove:
			err = b.self.Remove(d.Values)
		case ActionUpdate:
			err = b.self.Update(d.Updates)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func sourceName(src Source) string {
	if p, ok := src.(interface{ Name() string }); ok {
		return p.Name()
	}
	return "<external>"
}
