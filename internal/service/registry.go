package service

// identityRegistry tracks every identity that has ever registered and the
// live connection each one is currently bound to. Registration is single
// use for the lifetime of the process: the used set only grows.
//
// Not safe for concurrent use on its own; the MatchService mutex guards it.
type identityRegistry struct {
	used       map[string]struct{}
	byIdentity map[string]string // identity -> connection id
	byConn     map[string]string // connection id -> identity
}

func newIdentityRegistry() *identityRegistry {
	return &identityRegistry{
		used:       make(map[string]struct{}),
		byIdentity: make(map[string]string),
		byConn:     make(map[string]string),
	}
}

// Register marks the identity as used. A second registration of the same
// identity fails with ErrIdentityAlreadyUsed, no matter what happened to
// its connection in between.
func (r *identityRegistry) Register(identity string) error {
	if _, exists := r.used[identity]; exists {
		return ErrIdentityAlreadyUsed
	}
	r.used[identity] = struct{}{}
	return nil
}

// Bind records the current connection for the identity, replacing any
// previous binding.
func (r *identityRegistry) Bind(identity, connID string) {
	if old, ok := r.byIdentity[identity]; ok {
		delete(r.byConn, old)
	}
	r.byIdentity[identity] = connID
	r.byConn[connID] = identity
}

// Unbind removes the binding only while it still points at connID, so a
// stale disconnect cannot clobber a fresh binding for the same identity.
func (r *identityRegistry) Unbind(identity, connID string) {
	if current, ok := r.byIdentity[identity]; !ok || current != connID {
		return
	}
	delete(r.byIdentity, identity)
	delete(r.byConn, connID)
}

// Resolve maps a connection id back to its identity, for disconnects that
// arrive without one.
func (r *identityRegistry) Resolve(connID string) (string, bool) {
	identity, ok := r.byConn[connID]
	return identity, ok
}
