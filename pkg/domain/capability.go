package domain

// Capability is a named permission a participant can hold. The original role
// booleans (keyholder, sysadmin, ...) are modeled as an explicit set so
// authorization checks name the capability they require instead of probing
// ad hoc flags.
type Capability string

const (
	// CapKeyholder marks a participant trusted to open and supervise the
	// facility. Presence of one open keyholder visit is what keeps the
	// facility open.
	CapKeyholder Capability = "keyholder"

	// CapSysadmin grants unrestricted administrative access.
	CapSysadmin Capability = "sysadmin"

	// CapBoardMember receives compliance alerts and may administer
	// attendance records.
	CapBoardMember Capability = "board_member"

	// CapHouseholdLead may check household members in and out.
	CapHouseholdLead Capability = "household_lead"
)

// Capabilities is the set of capabilities attached to a participant or a
// staff session.
type Capabilities []Capability

func (c Capabilities) Has(want Capability) bool {
	for _, cap := range c {
		if cap == want {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of the given
// capabilities.
func (c Capabilities) HasAny(want ...Capability) bool {
	for _, w := range want {
		if c.Has(w) {
			return true
		}
	}
	return false
}

// Elevated reports whether the set carries facility-administration rights:
// sysadmin, board member, or keyholder.
func (c Capabilities) Elevated() bool {
	return c.HasAny(CapSysadmin, CapBoardMember, CapKeyholder)
}

// Strings returns the capability names, for serialization into session
// tokens and audit payloads.
func (c Capabilities) Strings() []string {
	out := make([]string, len(c))
	for i, cap := range c {
		out[i] = string(cap)
	}
	return out
}

// CapabilitiesFromStrings rebuilds a capability set from serialized names.
// Unknown names are preserved verbatim; Has simply never matches them.
func CapabilitiesFromStrings(names []string) Capabilities {
	caps := make(Capabilities, len(names))
	for i, n := range names {
		caps[i] = Capability(n)
	}
	return caps
}
