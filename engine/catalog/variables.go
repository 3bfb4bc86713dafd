package catalog

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/buger/jsonparser"
)

var errEnough = errors.New("enough variables")

var emptyObject = []byte("{}")

// truncateVariables keeps the first max entries of a JSON object in source
// order. Anything that is not an object becomes {}.
func truncateVariables(raw []byte, max int) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return emptyObject
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	err := jsonparser.ObjectEach(trimmed, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		if n == max {
			return errEnough
		}
		// ObjectEach hands over the key unescaped.
		quoted, err := json.Marshal(string(key))
		if err != nil {
			return err
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(quoted)
		buf.WriteByte(':')
		if typ == jsonparser.String {
			buf.WriteByte('"')
			buf.Write(value)
			buf.WriteByte('"')
		} else {
			buf.Write(value)
		}
		n++
		return nil
	})
	if err != nil && !errors.Is(err, errEnough) {
		return emptyObject
	}
	buf.WriteByte('}')
	return buf.Bytes()
}
