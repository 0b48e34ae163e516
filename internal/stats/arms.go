package stats

// Arms names the two variants of a two-arm test.
type Arms struct {
	Control   string
	Treatment string
}

// DefaultArms is the conventional A/B labelling.
func DefaultArms() Arms {
	return Arms{Control: "A", Treatment: "B"}
}

// matches reports whether labels are exactly the two arms, in any order.
func (a Arms) matches(labels []string) bool {
	if len(labels) != 2 || a.Control == a.Treatment {
		return false
	}
	return (labels[0] == a.Control && labels[1] == a.Treatment) ||
		(labels[0] == a.Treatment && labels[1] == a.Control)
}

// Selection is the user's choice of columns for an analysis.
type Selection struct {
	Event1     string // not consulted when deriving conversions
	Event2     string
	Assignment string
}
