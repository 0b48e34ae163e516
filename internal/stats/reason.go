package stats

import "fmt"

// Reason explains why an analysis produced no result. The zero value means
// the result is present.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonEmptyDataset    Reason = "empty_dataset"
	ReasonMissingColumn   Reason = "missing_column"
	ReasonNotConverted    Reason = "not_converted"
	ReasonNoGroups        Reason = "no_groups"
	ReasonArmMismatch     Reason = "arm_mismatch"
	ReasonZeroControlRate Reason = "zero_control_rate"
)

// Detail is a short diagnostic for logs and the JSON API.
func (r Reason) Detail() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonEmptyDataset:
		return "dataset has no rows"
	case ReasonMissingColumn:
		return "a selected column is not in the dataset"
	case ReasonNotConverted:
		return "conversion flag has not been derived"
	case ReasonNoGroups:
		return "assignment column has no non-null values"
	case ReasonArmMismatch:
		return "assignment values are not exactly the two configured arms"
	case ReasonZeroControlRate:
		return "control conversion rate is zero"
	default:
		return string(r)
	}
}

// Component identifies one of the analysis outputs shown to the user.
type Component string

const (
	ComponentConversion Component = "conversion"
	ComponentLift       Component = "lift"
	ComponentChiSquared Component = "chi_squared"
	ComponentPosterior  Component = "posterior"
)

// Unavailable is the user-visible explanation for a missing component.
func (a Arms) Unavailable(c Component) string {
	switch c {
	case ComponentConversion:
		return fmt.Sprintf("There was a problem with one of your column selections, or there is not both %s and %s assignments in your data", a.Control, a.Treatment)
	case ComponentLift:
		return fmt.Sprintf("Could not calculate lift/drop, ensure you have a proper assignment column with values %s and %s", a.Control, a.Treatment)
	case ComponentChiSquared:
		return "There was a problem with your column selections, could not perform chi-squared test"
	case ComponentPosterior:
		return fmt.Sprintf("Could not create posterior distribution chart. Ensure there are exactly two assignments named %s and %s", a.Control, a.Treatment)
	default:
		return "Result unavailable"
	}
}
