package scheduler

// Gate bounds how many transfers run at once. It is a plain counter;
// the Scheduler holds the lock when calling it.
type Gate struct {
	limit int
	inUse int
}

func NewGate(limit int) *Gate {
	if limit < 0 {
		limit = 0
	}
	return &Gate{limit: limit}
}

// TryAcquire claims a slot if one is free.
func (g *Gate) TryAcquire() bool {
	if g.inUse >= g.limit {
		return false
	}
	g.inUse++
	return true
}

// Release returns a slot. Releasing with nothing held is a no-op, so a
// double completion cannot drive the counter negative.
func (g *Gate) Release() {
	if g.inUse > 0 {
		g.inUse--
	}
}

// SetLimit changes the cap. Negative values clamp to zero; a limit of
// zero admits nothing. Running transfers keep their slots even when the
// new limit is below the current use.
func (g *Gate) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	g.limit = limit
}

func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) InUse() int {
	return g.inUse
}
