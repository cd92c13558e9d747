// Package reactive provides the explicit observer primitives the dashboard
// uses to recompute derived state when a control changes.
//
// # Core Types
//
// Cell[T] holds one mutable value with a version counter:
//
//	sel := NewCell(filter.DefaultSelection())
//	value, version := sel.Get()
//	sel.Set(next)                       // bumps the version, notifies subscribers
//	stop := sel.Subscribe(func(v filter.Selection, version uint64) { ... })
//	defer stop()
//
// Memo[S, T] caches a value derived from a cell and recomputes it only when
// the cell's version moves:
//
//	view := NewMemo(sel, func(s filter.Selection) filter.View { return filter.Apply(ds, s) })
//	v, version := view.Get()
//
// # Delivery
//
// Subscribers run synchronously on the writer's goroutine, in subscription
// order, after the cell's lock is released, so a subscriber may read the
// cell or a memo over it. Every reader of a memo at the same version sees the
// identical cached value.
package reactive
