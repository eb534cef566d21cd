package mapper

import "fmt"

// Option configures a Mapper.
type Option func(*Mapper)

// MemberPolicy decides what happens when a member of a multi-reference
// list cannot be resolved to a reference.
type MemberPolicy int

const (
	// TruncateOnUnresolved stops at the first unresolvable member and keeps
	// the references gathered before it.
	TruncateOnUnresolved MemberPolicy = iota
	// SkipUnresolved drops unresolvable members and keeps going.
	SkipUnresolved
)

func (p MemberPolicy) String() string {
	switch p {
	case TruncateOnUnresolved:
		return "truncate"
	case SkipUnresolved:
		return "skip"
	default:
		return fmt.Sprintf("MemberPolicy(%d)", int(p))
	}
}

// ParseMemberPolicy parses "truncate" or "skip". An empty string is the
// default policy.
func ParseMemberPolicy(s string) (MemberPolicy, error) {
	switch s {
	case "", "truncate":
		return TruncateOnUnresolved, nil
	case "skip":
		return SkipUnresolved, nil
	default:
		return 0, fmt.Errorf("unknown member policy %q (want truncate or skip)", s)
	}
}

// WithMemberPolicy sets the multi-reference member policy.
func WithMemberPolicy(p MemberPolicy) Option {
	return func(m *Mapper) {
		m.memberPolicy = p
	}
}

// ReferenceZone decides which zone a reference's record id points into.
type ReferenceZone int

const (
	// ReferenceZoneDefault points references into the backend's default zone.
	ReferenceZoneDefault ReferenceZone = iota
	// ReferenceZoneTarget points references into the target type's own zone.
	ReferenceZoneTarget
)

// WithReferenceZone sets the zone references point into.
func WithReferenceZone(z ReferenceZone) Option {
	return func(m *Mapper) {
		m.referenceZone = z
	}
}
