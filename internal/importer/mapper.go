package importer

import "github.com/booking-admin-bulk-api/internal/models"

// ApplyMapping renames raw keys through the caller-supplied mapping and then
// overlays default values. Mapping runs first; defaults never overwrite a
// field the row already carries.
func ApplyMapping(raw models.RawRecord, mapping map[string]string, defaults map[string]interface{}) models.RawRecord {
	canonical := make(models.RawRecord, len(raw)+len(defaults))

	for key, value := range defaults {
		canonical[key] = value
	}

	for key, value := range raw {
		if mapped, ok := mapping[key]; ok {
			canonical[mapped] = value
		} else {
			canonical[key] = value
		}
	}

	return canonical
}

// StripAbsent returns a copy of the record without keys whose values are
// absent (nil or empty string). Writes go through this step so missing
// fields never land in the store as explicit nulls.
func StripAbsent(record models.RawRecord) models.RawRecord {
	out := make(models.RawRecord, len(record))
	for key, value := range record {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		out[key] = value
	}
	return out
}
