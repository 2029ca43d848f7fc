package models

// OperationKind is the mutation verb applied to every item in a request
type OperationKind string

const (
	OpCreate       OperationKind = "create"
	OpUpdate       OperationKind = "update"
	OpDelete       OperationKind = "delete"
	OpStatusChange OperationKind = "statusChange"
)

// ValidOperationKinds defines the accepted mutation verbs
var ValidOperationKinds = map[OperationKind]bool{
	OpCreate:       true,
	OpUpdate:       true,
	OpDelete:       true,
	OpStatusChange: true,
}

// ImportFormat identifies the encoding of an uploaded import payload
type ImportFormat string

const (
	FormatCSV         ImportFormat = "csv"
	FormatSpreadsheet ImportFormat = "xlsx"
	FormatJSON        ImportFormat = "json"
)

// RawRecord is a loosely-typed row before validation. Keys are canonical
// field names once the field mapper has run.
type RawRecord map[string]interface{}

// Options tunes how the executor processes a request
type Options struct {
	ChunkSize       int    `json:"chunk_size"`
	ContinueOnError bool   `json:"continue_on_error"`
	UpdateExisting  bool   `json:"update_existing"`
	MatchingField   string `json:"matching_field,omitempty"`
	SkipValidation  bool   `json:"skip_validation"`
}

// DefaultChunkSize bounds one atomic write group when the caller does not
// choose a size.
const DefaultChunkSize = 50

// Normalize fills unset option fields with their defaults
func (o *Options) Normalize() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
}

// MutationRequest is a direct bulk mutation: one operation kind applied to
// an ordered list of loosely-typed items.
type MutationRequest struct {
	OperationKind OperationKind `json:"operation"`
	EntityType    EntityType    `json:"entity_type"`
	Items         []RawRecord   `json:"items"`
	Options       Options       `json:"options"`
	CreatedBy     string        `json:"created_by,omitempty"`
}

// ImportRequest is a file-based bulk mutation. FileBytes holds the full
// upload; the caller enforces the size cap before construction.
type ImportRequest struct {
	Format        ImportFormat           `json:"format"`
	FileBytes     []byte                 `json:"-"`
	EntityType    EntityType             `json:"entity_type"`
	Options       Options                `json:"options"`
	FieldMapping  map[string]string      `json:"field_mapping,omitempty"`
	DefaultValues map[string]interface{} `json:"default_values,omitempty"`
	CreatedBy     string                 `json:"created_by,omitempty"`
}
