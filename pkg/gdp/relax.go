package gdp

import "github.com/DavidDB33/gdpcut/pkg/model"

// RelaxIntegrality drops the binary marker from every discrete variable so a
// continuous solver can handle the model. With undo=true it restores the
// markers relaxed by an earlier call.
func RelaxIntegrality(m *model.Model, undo bool) {
	for _, v := range m.Vars {
		if undo {
			if v.RelaxedBinary {
				v.Binary = true
				v.RelaxedBinary = false
			}
		} else if v.Binary {
			v.Binary = false
			v.RelaxedBinary = true
		}
	}
}
