package repository

import "fmt"

// Side is the direction of the question a contract asks
// (will price avoid a new low / a new high).
type Side string

const (
	SideLow  Side = "low"
	SideHigh Side = "high"
)

// ContractKey identifies one forecast contract. It replaces string keys
// assembled from side and horizon; the struct is comparable and can be
// used directly as a map key.
type ContractKey struct {
	Side    Side
	Horizon Horizon
}

// String renders the key for logs and audit records only.
func (k ContractKey) String() string {
	return fmt.Sprintf("%s-%s", k.Side, k.Horizon)
}

// IsValid reports whether both components are known values.
func (k ContractKey) IsValid() bool {
	if k.Side != SideLow && k.Side != SideHigh {
		return false
	}
	return IsValidHorizon(k.Horizon)
}
