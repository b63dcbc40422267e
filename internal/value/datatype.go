package value

import (
	"math"
	"strings"
)

// Datatype names a kind of value and can check membership.
type Datatype struct {
	Name string
}

func (Datatype) TypeName() string { return "datatype" }

var datatypeAliases = map[string]string{
	"number":     "number",
	"num":        "number",
	"string":     "string",
	"str":        "string",
	"boolean":    "boolean",
	"bool":       "boolean",
	"array":      "array",
	"datamap":    "datamap",
	"dm":         "datamap",
	"dataset":    "dataset",
	"ds":         "dataset",
	"colour":     "colour",
	"color":      "colour",
	"datatype":   "datatype",
	"lambda":     "lambda",
	"command":    "command",
	"changer":    "changer",
	"any":        "any",
	"integer":    "integer",
	"int":        "integer",
	"even":       "even",
	"odd":        "odd",
	"empty":      "empty",
	"whitespace": "whitespace",
}

// LookupDatatype resolves a datatype name or alias, case-insensitively.
func LookupDatatype(name string) (Datatype, bool) {
	canon, ok := datatypeAliases[strings.ToLower(name)]
	if !ok {
		return Datatype{}, false
	}
	return Datatype{Name: canon}, true
}

// Check reports whether v belongs to the datatype.
func (d Datatype) Check(v Value) bool {
	switch d.Name {
	case "any":
		return Storable(v)
	case "integer":
		n, ok := v.(Number)
		return ok && float64(n) == math.Trunc(float64(n))
	case "even", "odd":
		n, ok := v.(Number)
		if !ok || float64(n) != math.Trunc(float64(n)) {
			return false
		}
		even := math.Mod(math.Abs(float64(n)), 2) == 0
		return even == (d.Name == "even")
	case "empty":
		switch v := v.(type) {
		case String:
			return v == ""
		case Array:
			return len(v) == 0
		case *Datamap:
			return v.Len() == 0
		case *Dataset:
			return v.Len() == 0
		}
		return false
	case "whitespace":
		s, ok := v.(String)
		return ok && s != "" && strings.TrimSpace(string(s)) == ""
	}
	if v == nil {
		return false
	}
	return v.TypeName() == d.Name
}

// Compatible reports whether every value of d is also a value of other, which
// is what re-restricting an already typed variable requires.
func (d Datatype) Compatible(other Datatype) bool {
	if d.Name == other.Name || other.Name == "any" {
		return true
	}
	switch d.Name {
	case "integer":
		return other.Name == "number"
	case "even", "odd":
		return other.Name == "number" || other.Name == "integer"
	}
	return false
}
