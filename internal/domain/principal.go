package domain

// Principal is the opaque caller identity supplied by the identity provider.
// The platform never interprets its contents beyond equality and ordering.
type Principal string

// Anonymous is the distinguished identity of unauthenticated callers. The
// guard rejects it before consulting the authorization set.
const Anonymous Principal = "2vxsx-fae"

func (p Principal) IsAnonymous() bool { return p == Anonymous || p == "" }

func (p Principal) String() string { return string(p) }
