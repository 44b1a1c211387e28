package observability

import (
	"log/slog"

	"github.com/aretw0/espalier/pkg/domain"
)

// LogHooks returns hooks that log every lifecycle event at Debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	node := func(e *domain.NodeEvent) {
		logger.Debug(string(e.Type),
			"node_id", e.NodeID,
			"type", e.NodeType,
			"slot", e.SlotID,
			"mode", e.Mode,
		)
	}
	conn := func(e *domain.ConnectionEvent) {
		logger.Debug(string(e.Type),
			"connection_id", e.ConnectionID,
			"group", e.Group,
			"source", e.Source,
			"target", e.Target,
		)
	}
	return domain.LifecycleHooks{
		OnNodeCreate:  node,
		OnNodeDestroy: node,
		OnModeSwitch:  node,
		OnSlotReset:   node,
		OnConnect:     conn,
		OnDisconnect:  conn,
	}
}

// Combine returns hooks that call each non-nil hook of every set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(*domain.NodeEvent)) func(*domain.NodeEvent) {
		var fns []func(*domain.NodeEvent)
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(e *domain.NodeEvent) {
			for _, fn := range fns {
				fn(e)
			}
		}
	}
	pickConn := func(get func(domain.LifecycleHooks) func(*domain.ConnectionEvent)) func(*domain.ConnectionEvent) {
		var fns []func(*domain.ConnectionEvent)
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(e *domain.ConnectionEvent) {
			for _, fn := range fns {
				fn(e)
			}
		}
	}

	return domain.LifecycleHooks{
		OnNodeCreate:  pick(func(h domain.LifecycleHooks) func(*domain.NodeEvent) { return h.OnNodeCreate }),
		OnNodeDestroy: pick(func(h domain.LifecycleHooks) func(*domain.NodeEvent) { return h.OnNodeDestroy }),
		OnModeSwitch:  pick(func(h domain.LifecycleHooks) func(*domain.NodeEvent) { return h.OnModeSwitch }),
		OnSlotReset:   pick(func(h domain.LifecycleHooks) func(*domain.NodeEvent) { return h.OnSlotReset }),
		OnConnect:     pickConn(func(h domain.LifecycleHooks) func(*domain.ConnectionEvent) { return h.OnConnect }),
		OnDisconnect:  pickConn(func(h domain.LifecycleHooks) func(*domain.ConnectionEvent) { return h.OnDisconnect }),
	}
}
