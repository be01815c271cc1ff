package project

// POOption is one purchase order the user can attach to a draft invoice.
type POOption struct {
	Kind   POKind `json:"kind"`
	Number string `json:"number"`
}

// lineKind maps an invoice budget line to the PO slot it draws from.
func lineKind(line BudgetLine) POKind {
	switch line {
	case LineHardware:
		return POHardware
	case LineService:
		return POSoftware
	}
	return ""
}

// ResolvePONumber picks the initial purchase order number offered when
// drafting an invoice of the given budget line. Precedence:
//
//  1. With an active set: the slot matching the line when it is active and
//     defined, else the combined number when defined, else the first active
//     slot with a defined number.
//  2. Without an active set: any defined slot in fixed order
//     combined, hardware, software.
//  3. Empty string when nothing is defined; the field stays free text.
//
// When several options are eligible the caller offers an explicit choice
// via EligiblePOs; this function only seeds the selection.
func ResolvePONumber(p Project, line BudgetLine) string {
	active := NormalizeActivePOs(p.ActivePOs, "")

	if len(active) > 0 {
		if want := lineKind(line); want != "" && containsKind(active, want) {
			if num := p.PONumbers.Number(want); num != "" {
				return num
			}
		}
		if num := p.PONumbers.Combined; num != "" {
			return num
		}
		for _, kind := range active {
			if num := p.PONumbers.Number(kind); num != "" {
				return num
			}
		}
		return ""
	}

	for _, kind := range []POKind{POCombined, POHardware, POSoftware} {
		if num := p.PONumbers.Number(kind); num != "" {
			return num
		}
	}
	return ""
}

// EligiblePOs lists every defined purchase order the user may choose from
// for a new invoice. With an active set only its members qualify; otherwise
// every defined slot does.
func EligiblePOs(p Project) []POOption {
	active := NormalizeActivePOs(p.ActivePOs, "")

	kinds := []POKind{POCombined, POHardware, POSoftware}
	var out []POOption
	for _, kind := range kinds {
		if len(active) > 0 && !containsKind(active, kind) {
			continue
		}
		if num := p.PONumbers.Number(kind); num != "" {
			out = append(out, POOption{Kind: kind, Number: num})
		}
	}
	return out
}

func containsKind(kinds []POKind, want POKind) bool {
	for _, kind := range kinds {
		if kind == want {
			return true
		}
	}
	return false
}
