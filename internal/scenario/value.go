package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a scenario parameter as it was configured. Integers and floats
// stay distinct, so 10 and 10.0 name different scenarios; numeric text is
// canonical (1.50 reads as 1.5, 1e3 as 1000.0).
type Value struct {
	text   string
	quoted bool
}

func Int(v int) Value { return Value{text: strconv.Itoa(v)} }

// Number is a float value; whole numbers keep a trailing ".0".
func Number(v float64) Value { return Value{text: formatFloat(v)} }

func String(s string) Value { return Value{text: s, quoted: true} }

func (v Value) String() string { return v.text }

func (v Value) IsZero() bool { return v.text == "" && !v.quoted }

// IsNumber reports whether the value was configured as a number.
func (v Value) IsNumber() bool {
	if v.quoted || v.text == "" {
		return false
	}
	_, err := strconv.ParseFloat(v.text, 64)
	return err == nil
}

// Float returns the numeric value, or false for strings.
func (v Value) Float() (float64, bool) {
	if v.quoted {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("scenario value at line %d: expected scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		text, ok := canonicalInt(node.Value)
		if !ok {
			// yaml spellings like 0x1f
			var n int64
			if err := node.Decode(&n); err != nil {
				return err
			}
			text = strconv.FormatInt(n, 10)
		}
		v.text, v.quoted = text, false
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		v.text, v.quoted = canonicalFloat(node.Value, f), false
	case "!!str":
		v.text, v.quoted = node.Value, true
	default:
		return fmt.Errorf("scenario value at line %d: unsupported type %s", node.Line, node.ShortTag())
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	if v.quoted {
		return json.Marshal(v.text)
	}
	return []byte(v.text), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("scenario value: %w", err)
	}
	*v = Value{text: canonicalNumber(n.String())}
	return nil
}

// canonicalNumber rewrites a JSON number in canonical form: integers in
// plain decimal, anything with a fraction or exponent as a float.
func canonicalNumber(text string) string {
	if !strings.ContainsAny(text, ".eE") {
		if s, ok := canonicalInt(text); ok {
			return s
		}
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// out of float64 range; keep the literal so the value stays valid JSON
		return text
	}
	return canonicalFloat(text, f)
}

func canonicalInt(text string) (string, bool) {
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return "", false
	}
	return n.String(), true
}

func canonicalFloat(text string, f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return text
	}
	return formatFloat(f)
}

// formatFloat prints the shortest text that round-trips f. Exponent form
// is used below 1e-4 and from 1e16 on, with a signed two-digit exponent;
// otherwise whole numbers end in ".0".
func formatFloat(f float64) string {
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(sci, "e")
	e, _ := strconv.Atoi(exp)

	if decpt := e + 1; decpt > 16 || decpt <= -4 {
		sign := "+"
		if e < 0 {
			sign, e = "-", -e
		}
		return fmt.Sprintf("%se%s%02d", mant, sign, e)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (v Value) MarshalYAML() (interface{}, error) {
	if v.IsZero() {
		return nil, nil
	}
	if v.quoted {
		return v.text, nil
	}
	tag := "!!int"
	if strings.ContainsAny(v.text, ".eE") {
		tag = "!!float"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.text}, nil
}
