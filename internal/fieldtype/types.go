// internal/fieldtype/types.go
//
// Formaly – field type catalog: the closed set of input kinds.
//
// Context
//   Every field on a form carries exactly one Type.  The set is closed: the
//   builder, validator, and renderer all switch over it exhaustively, so a new
//   variant means touching each of those switches on purpose.
//
// Workflow
//   •  All() lists the types in display order.
//   •  Descriptors() projects each type onto label, icon, and HTML input kind
//      for the builder palette.
//   •  IsChoice() gates the options invariant (select, radio, checkbox).
//
//------------------------------------------------------------------------------

package fieldtype

// Type is a field-type tag.  The zero value is not a valid type.
type Type string

const (
	Text     Type = "text"
	Email    Type = "email"
	Phone    Type = "phone"
	Textarea Type = "textarea"
	Number   Type = "number"
	Date     Type = "date"
	Select   Type = "select"
	Radio    Type = "radio"
	Checkbox Type = "checkbox"
	File     Type = "file"
)

// All returns every type in palette order.
func All() []Type {
	return []Type{Text, Email, Phone, Textarea, Number, Date, Select, Radio, Checkbox, File}
}

// Valid reports whether t belongs to the closed set.
func (t Type) Valid() bool {
	for _, v := range All() {
		if v == t {
			return true
		}
	}
	return false
}

// IsChoice reports whether fields of this type carry an option list.
func (t Type) IsChoice() bool {
	return t == Select || t == Radio || t == Checkbox
}

// IsTextual reports whether the type accepts free text with length and
// pattern constraints.
func (t Type) IsTextual() bool {
	return t == Text || t == Email || t == Phone || t == Textarea
}

// Descriptor is the display metadata of one type.
type Descriptor struct {
	Type     Type   `json:"type"`
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	HTMLType string `json:"htmlType"` // value of <input type>, or the element name
}

var descriptors = map[Type]Descriptor{
	Text:     {Text, "Texto", "type", "text"},
	Email:    {Email, "E-mail", "mail", "email"},
	Phone:    {Phone, "Telefone", "phone", "tel"},
	Textarea: {Textarea, "Texto longo", "align-left", "textarea"},
	Number:   {Number, "Número", "hash", "number"},
	Date:     {Date, "Data", "calendar", "date"},
	Select:   {Select, "Seleção", "chevron-down", "select"},
	Radio:    {Radio, "Escolha única", "circle-dot", "radio"},
	Checkbox: {Checkbox, "Múltipla escolha", "check-square", "checkbox"},
	File:     {File, "Arquivo", "paperclip", "file"},
}

// Descriptors returns the palette in All() order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, t := range All() {
		out = append(out, descriptors[t])
	}
	return out
}

// Describe returns the descriptor for t.  ok is false for unknown types.
func Describe(t Type) (d Descriptor, ok bool) {
	d, ok = descriptors[t]
	return d, ok
}
