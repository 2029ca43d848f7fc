package models

// EntityType identifies one of the managed record collections
type EntityType string

const (
	EntityCustomers EntityType = "customers"
	EntityBookings  EntityType = "bookings"
	EntityServices  EntityType = "services"
	EntityEquipment EntityType = "equipment"
	EntityUsers     EntityType = "users"
)

// Collections maps each entity type to its store collection name
var Collections = map[EntityType]string{
	EntityCustomers: "customers",
	EntityBookings:  "bookings",
	EntityServices:  "services",
	EntityEquipment: "equipment",
	EntityUsers:     "users",
}

// DefaultMatchField is the per-entity field used for duplicate detection
// when the caller does not supply one.
var DefaultMatchField = map[EntityType]string{
	EntityCustomers: "email",
	EntityBookings:  "email",
	EntityServices:  "name",
	EntityEquipment: "name",
	EntityUsers:     "email",
}

// IsValid reports whether the entity type maps to a known collection
func (e EntityType) IsValid() bool {
	_, ok := Collections[e]
	return ok
}

// Collection returns the store collection for the entity type
func (e EntityType) Collection() string {
	return Collections[e]
}

// MatchField returns the dedup matching field, preferring the override
func (e EntityType) MatchField(override string) string {
	if override != "" {
		return override
	}
	return DefaultMatchField[e]
}

// HasStatusField reports whether records of this entity carry a status
// field that a statusChange operation can flip.
func (e EntityType) HasStatusField() bool {
	switch e {
	case EntityBookings, EntityEquipment, EntityUsers:
		return true
	}
	return false
}
