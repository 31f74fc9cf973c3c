package scim

// PatchOpSchema identifies a SCIM 2.0 PatchOp document.
const PatchOpSchema = "urn:ietf:params:scim:api:messages:2.0:PatchOp"

// PatchOperation is one operation within a PatchOp document.
type PatchOperation struct {
	Op    string `json:"op" validate:"required"`
	Path  string `json:"path,omitempty"`
	Value any    `json:"value,omitempty"`
}

// PatchDocument is a SCIM partial-update request body. Schemas and
// Operations are both required; UpdateUserPatch rejects a document missing
// either before any network call.
type PatchDocument struct {
	Schemas    []string         `json:"schemas" validate:"required,min=1"`
	Operations []PatchOperation `json:"Operations" validate:"required,min=1,dive"`
}

// ReplacePatch builds a single-operation replace document for the given
// field values.
func ReplacePatch(values map[string]any) PatchDocument {
	return PatchDocument{
		Schemas:    []string{PatchOpSchema},
		Operations: []PatchOperation{{Op: "replace", Value: values}},
	}
}

// DeactivatePatch builds the patch that disables sign-in for an account.
func DeactivatePatch() PatchDocument {
	return ReplacePatch(map[string]any{"active": false})
}
