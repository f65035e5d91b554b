package ai

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Number accepts the loose numeric values the AI service emits: JSON numbers,
// numeric strings, strings with a unit suffix such as "5 Unit", and null.
type Number float64

var leadingNumber = regexp.MustCompile(`^[-+]?[0-9]+(?:[.,][0-9]+)?`)

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, _ := parseLeading(s)
		*n = Number(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n Number) Float() float64 {
	return float64(n)
}

// ParseUnits reads the count out of strings like "5 Unit" or "3 unit excavator".
func ParseUnits(raw string) (int, bool) {
	v, ok := parseLeading(raw)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}

func parseLeading(raw string) (float64, bool) {
	match := leadingNumber.FindString(strings.TrimSpace(raw))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
