package orchestrator

import (
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// AddObserver registers o. Adding an observer twice has no further effect.
func (r *Runtime) AddObserver(o Observer) error {
	if err := r.requireInit("AddObserver"); err != nil {
		return err
	}
	r.observers[o] = struct{}{}
	r.metrics.SetObserverCount(len(r.observers))
	return nil
}

// RemoveObserver unregisters o. Removing an unknown observer is a no-op.
func (r *Runtime) RemoveObserver(o Observer) error {
	if err := r.requireInit("RemoveObserver"); err != nil {
		return err
	}
	delete(r.observers, o)
	r.metrics.SetObserverCount(len(r.observers))
	return nil
}

// ObserverCount returns the number of registered observers
func (r *Runtime) ObserverCount() int {
	return len(r.observers)
}

// snapshot copies the observer set so callbacks may add or remove observers
func (r *Runtime) snapshot() []Observer {
	out := make([]Observer, 0, len(r.observers))
	for o := range r.observers {
		out = append(out, o)
	}
	return out
}

func (r *Runtime) notify(event string, fn func(Observer)) {
	observers := r.snapshot()
	for _, o := range observers {
		fn(o)
	}
	r.metrics.RecordNotification(event, len(observers))
	r.logger.Debug(utl.ORD, 40, "observers notified",
		zap.String("event", event), zap.Int("observers", len(observers)))
}

func (r *Runtime) notifyLef(tech *odb.Tech, lib *odb.Lib) {
	r.notify("lef_read", func(o Observer) { o.PostReadLef(tech, lib) })
}

func (r *Runtime) notifyDef(block *odb.Block) {
	r.notify("def_read", func(o Observer) { o.PostReadDef(block) })
}

func (r *Runtime) notifyDb(db *odb.Database) {
	r.notify("db_read", func(o Observer) { o.PostReadDb(db) })
}
