package document

import "github.com/erland/pwa-whiteboard-sub000/internal/board"

// EnforcePolicy rewrites ev so that it respects the locked fields of
// boardType. Created objects get the locked values written over them; updates
// lose any locked field. It reports false when nothing of the event
// survives, in which case the event must be treated as a no-op.
func EnforcePolicy(boardType board.BoardType, objs []board.Object, ev board.Event) (board.Event, bool) {
	policy := board.PolicyFor(boardType)

	switch ev.Type {
	case board.ObjectCreated:
		if ev.Object == nil {
			return ev, false
		}
		if locked, ok := policy.LockedFor(ev.Object.Type); ok {
			o := locked.Apply(*ev.Object)
			ev.Object = &o
		}
		return ev, true

	case board.ObjectUpdated:
		if ev.Patch == nil {
			return ev, false
		}
		target, ok := board.Find(objs, ev.ObjectID)
		if !ok {
			return ev, false
		}
		locked, ok := policy.LockedFor(target.Type)
		if !ok {
			return ev, !ev.Patch.IsEmpty()
		}
		p := ev.Patch.Without(locked.Fields()...)
		if p.IsEmpty() {
			return ev, false
		}
		ev.Patch = &p
		return ev, true
	}
	return ev, true
}
