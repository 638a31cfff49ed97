package synth

import "github.com/satishbabariya/kmigrator/internal/core/migration/domain"

// attachViews appends the forward views SQL to the first unit and the
// backward views SQL to the first reversible unit. Each side is consumed at
// most once. When every unit is irreversible the backward SQL is kept as a
// note of the first unit and true is returned.
func attachViews(units []*domain.Unit, forward, backward string) bool {
	fwdConsumed := forward == ""
	bwdConsumed := backward == ""
	for _, u := range units {
		if !fwdConsumed {
			u.ForwardSQL += "\n" + forward
			fwdConsumed = true
		}
		if !bwdConsumed && !u.Irreversible {
			u.BackwardSQL += "\n" + backward
			bwdConsumed = true
		}
	}
	if !bwdConsumed && len(units) > 0 {
		units[0].BackwardNote = backward
		return true
	}
	return false
}
