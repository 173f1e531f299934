package types

// Kind is the representation class of a script type.
type Kind byte

const (
	Void Kind = iota
	Bool
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	String
	Object
	Class
	Interface
	ArrayKind
)

var kindNames = [...]string{
	Void:      "void",
	Bool:      "bool",
	Int8:      "int8",
	UInt8:     "uint8",
	Int16:     "int16",
	UInt16:    "uint16",
	Int32:     "int32",
	UInt32:    "uint32",
	Int64:     "int64",
	UInt64:    "uint64",
	Float32:   "float",
	Float64:   "double",
	String:    "string",
	Object:    "object",
	Class:     "class",
	Interface: "interface",
	ArrayKind: "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether values of the kind are stored by value.
func (k Kind) IsPrimitive() bool {
	return k >= Bool && k <= Float64
}

func (k Kind) IsInteger() bool {
	return k >= Int8 && k <= UInt64
}

func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}
