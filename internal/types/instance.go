package types

import "fmt"

// Transition is the state change reported by the provider for a start or stop request.
// State names are passed through exactly as the provider reports them.
type Transition struct {
	Previous string
	Current  string
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s", t.Previous, t.Current)
}

// InstanceStatus is the current lifecycle state of one configured instance
type InstanceStatus struct {
	Name       string
	InstanceID string
	State      string // "pending", "running", "stopping", "stopped", ...
}
