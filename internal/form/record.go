package form

import (
	"net/url"

	"idintake/internal/application"
	"idintake/internal/schema"
)

// countryFields are pre-filled with the default country when the schema has them.
var countryFields = []string{"address_country_code", "address_country"}

const defaultCountry = "US"

// InitialRecord returns an empty value for every schema key, with the country
// fields pre-filled.
func InitialRecord(m *schema.Map) *application.Record {
	rec := application.NewRecord()
	for _, name := range m.Names() {
		rec.Set(name, "")
	}
	for _, name := range countryFields {
		if m.Has(name) {
			rec.Set(name, defaultCountry)
		}
	}
	return rec
}

// RecordFromForm rebuilds the record from posted values. Only schema keys are
// read, in schema order, and every value is normalized.
func RecordFromForm(m *schema.Map, values url.Values) *application.Record {
	rec := application.NewRecord()
	for _, name := range m.Names() {
		rec.Set(name, Normalize(name, values.Get(name)))
	}
	return rec
}
