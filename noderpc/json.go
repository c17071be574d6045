package noderpc

import (
	"encoding/json"
	"fmt"
)

// unmarshalTuple decodes a fixed-size JSON array into dst, rejecting
// entries with the wrong arity.
func unmarshalTuple(data []byte, dst *[2]string) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected a two-element tuple, got %d elements", len(raw))
	}
	dst[0], dst[1] = raw[0], raw[1]
	return nil
}
