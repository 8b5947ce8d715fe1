package ray

// Tag is the runtime type discriminator carried by every engine value.
//
// Non-negative tags up to C8 are typed vectors; the negated tag is the
// corresponding atom (TagI64 = 5 is an i64 vector, -5 an i64 atom).
// List is the untyped vector. Tags above C8 are special forms.
type Tag int8

const (
	TagList      Tag = 0
	TagB8        Tag = 1
	TagU8        Tag = 2
	TagI16       Tag = 3
	TagI32       Tag = 4
	TagI64       Tag = 5
	TagSymbol    Tag = 6
	TagDate      Tag = 7
	TagTime      Tag = 8
	TagTimestamp Tag = 9
	TagF64       Tag = 10
	TagGuid      Tag = 11
	TagC8        Tag = 12
	TagTable     Tag = 98
	TagDict      Tag = 99
	TagLambda    Tag = 100
	TagNull      Tag = 126
	TagError     Tag = 127
)

var tagNames = map[Tag]string{
	TagList:      "list",
	TagB8:        "b8",
	TagU8:        "u8",
	TagI16:       "i16",
	TagI32:       "i32",
	TagI64:       "i64",
	TagSymbol:    "symbol",
	TagDate:      "date",
	TagTime:      "time",
	TagTimestamp: "timestamp",
	TagF64:       "f64",
	TagGuid:      "guid",
	TagC8:        "c8",
	TagTable:     "table",
	TagDict:      "dict",
	TagLambda:    "lambda",
	TagNull:      "null",
	TagError:     "error",
}

// String returns the engine type name for the tag. Atom tags share the name
// of their vector family.
func (t Tag) String() string {
	lookup := t
	if t < 0 {
		lookup = -t
	}
	if name, ok := tagNames[lookup]; ok {
		return name
	}
	return "unknown"
}

// IsAtom reports whether the tag denotes an atomic (scalar) value.
func (t Tag) IsAtom() bool {
	return t < 0
}

// IsVector reports whether the tag denotes a typed vector.
// List (the untyped vector) is excluded; see IsList.
func (t Tag) IsVector() bool {
	return t > TagList && t <= TagC8
}

// IsList reports whether the tag denotes an untyped list.
func (t Tag) IsList() bool {
	return t == TagList
}

// IsIntFamily reports whether the tag's elements carry integral payloads:
// booleans, sized integers, and the calendar types, which are all day/ms/ns
// counts on the wire.
func (t Tag) IsIntFamily() bool {
	lookup := t
	if t < 0 {
		lookup = -t
	}
	switch lookup {
	case TagB8, TagU8, TagI16, TagI32, TagI64, TagDate, TagTime, TagTimestamp:
		return true
	}
	return false
}
