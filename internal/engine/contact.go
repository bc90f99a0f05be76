package engine

// Contact is the read-only view of a person the engine works on.
// Anniversary is passed through exactly as stored; an unparseable value
// ranks as ProximityUnknown instead of being filtered out upstream.
type Contact struct {
	ID          string
	DisplayName string
	Anniversary string
	Groups      []string
}
