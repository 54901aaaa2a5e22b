package literal

// MapVariant discriminates which part of a map column a literal index is
// built over, per spec.md 4.2 "Map-entries/keys/values".
type MapVariant int

const (
	MapKeys MapVariant = iota
	MapValues
	MapEntries
)

// EncodeMapElement returns the single term a map variant contributes for
// one (key, value) element of a row's map: the key for KEYS, the value for
// VALUES, and the composite of key and value for ENTRIES. Callers invoke it
// once per element.
func EncodeMapElement(variant MapVariant, key, value []byte) []byte {
	switch variant {
	case MapKeys:
		return key
	case MapValues:
		return value
	default: // MapEntries
		return EncodeComposite(key, value)
	}
}
