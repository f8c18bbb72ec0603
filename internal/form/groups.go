package form

import (
	"strings"

	"idintake/internal/application"
	"idintake/internal/schema"
)

// Groups partitions controls for layout. Every schema field lands in exactly
// one group; schema order is kept inside each.
type Groups struct {
	Name       []Control
	Address    []Control
	AddressRow []Control // city, state and postal, rendered side by side
	Personal   []Control
}

// HasAddress reports whether the address section has any control.
func (g Groups) HasAddress() bool {
	return len(g.Address) > 0 || len(g.AddressRow) > 0
}

// Len returns the total number of controls.
func (g Groups) Len() int {
	return len(g.Name) + len(g.Address) + len(g.AddressRow) + len(g.Personal)
}

// GroupControls builds one control per schema field, valued from rec.
func GroupControls(m *schema.Map, rec *application.Record) Groups {
	var g Groups
	for _, f := range m.Fields() {
		c := NewControl(f, rec.Get(f.Name))
		switch {
		case strings.Contains(f.Name, "name"):
			g.Name = append(g.Name, c)
		case strings.Contains(f.Name, "address"):
			if isAddressRowField(f.Name) {
				g.AddressRow = append(g.AddressRow, c)
			} else {
				g.Address = append(g.Address, c)
			}
		default:
			g.Personal = append(g.Personal, c)
		}
	}
	return g
}

func isAddressRowField(name string) bool {
	return strings.Contains(name, "city") || strings.Contains(name, "state") || strings.Contains(name, "postal")
}
