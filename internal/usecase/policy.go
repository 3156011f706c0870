package usecase

// WindowProfile describes how many items around the current viewing
// position should hold live controllers.
type WindowProfile struct {
	Behind int
	Ahead  int
}

// DefaultWindowProfile is the normal preload window.
func DefaultWindowProfile() WindowProfile {
	return WindowProfile{Behind: 2, Ahead: 3}
}

// ConservativeWindowProfile narrows the window for constrained conditions.
func ConservativeWindowProfile() WindowProfile {
	return WindowProfile{Behind: 0, Ahead: 1}
}

// WindowPlan is the output of the preload policy: the set of indices that
// should hold a live controller and the order in which missing ones should
// be acquired.
type WindowPlan struct {
	// Keep contains every index inside the clamped window. Any index with
	// a live controller outside Keep should be released.
	Keep map[int]struct{}
	// Load lists the window indices in acquisition order: the current
	// index first, then ascending distance with forward before backward,
	// since forward continuation is the likely next view.
	Load []int
}

// Contains reports whether the plan keeps the given index loaded.
func (p WindowPlan) Contains(index int) bool {
	_, ok := p.Keep[index]
	return ok
}

// PlanWindow computes the preload plan for the current index over a catalog
// of count items. It is a pure function: no side effects, no I/O.
func PlanWindow(current, count int, profile WindowProfile) WindowPlan {
	plan := WindowPlan{Keep: make(map[int]struct{})}
	if count <= 0 {
		return plan
	}
	current = ClampIndex(current, count)

	lo := current - profile.Behind
	if lo < 0 {
		lo = 0
	}
	hi := current + profile.Ahead
	if hi > count-1 {
		hi = count - 1
	}
	for i := lo; i <= hi; i++ {
		plan.Keep[i] = struct{}{}
	}

	plan.Load = append(plan.Load, current)
	maxDist := profile.Ahead
	if profile.Behind > maxDist {
		maxDist = profile.Behind
	}
	for dist := 1; dist <= maxDist; dist++ {
		if fwd := current + dist; dist <= profile.Ahead && fwd <= hi {
			plan.Load = append(plan.Load, fwd)
		}
		if back := current - dist; dist <= profile.Behind && back >= lo {
			plan.Load = append(plan.Load, back)
		}
	}
	return plan
}

// ClampIndex clamps a reported viewing index into [0, count-1].
// An empty feed always clamps to zero.
func ClampIndex(index, count int) int {
	if index < 0 || count <= 0 {
		return 0
	}
	if index > count-1 {
		return count - 1
	}
	return index
}
