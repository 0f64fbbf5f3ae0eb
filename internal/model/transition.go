package model

// Transition names a boundary between two construction phases that a lot
// must pass an inspection gate to cross.
type Transition string

const (
	TransitionFoundationToFraming Transition = "foundation_to_framing"
	TransitionFramingToRoofing    Transition = "framing_to_roofing"
	TransitionRoofingToRoughIn    Transition = "roofing_to_rough_in"
	TransitionRoughInToInsulation Transition = "rough_in_to_insulation"
	TransitionInsulationToDrywall Transition = "insulation_to_drywall"
	TransitionDrywallToFinish     Transition = "drywall_to_finish"
)

// Transitions lists every known transition in build order.
var Transitions = []Transition{
	TransitionFoundationToFraming,
	TransitionFramingToRoofing,
	TransitionRoofingToRoughIn,
	TransitionRoughInToInsulation,
	TransitionInsulationToDrywall,
	TransitionDrywallToFinish,
}

// String returns the string representation of the transition.
func (t Transition) String() string {
	return string(t)
}

// IsValid checks whether the transition is a known value.
func (t Transition) IsValid() bool {
	for _, known := range Transitions {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTransition converts s to a Transition, returning ErrInvalidTransition
// for values outside the fixed enumeration.
func ParseTransition(s string) (Transition, error) {
	t := Transition(s)
	if !t.IsValid() {
		return "", invalidTransition(s)
	}
	return t, nil
}
