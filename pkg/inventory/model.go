package inventory

import "encoding/json"

// Item is one stock record keyed by the snack's name in the inventory file.
// Only the stock count matters to the ordering logic; descriptive fields such
// as allergies or pricing are carried through untouched so a rewrite of the
// file never loses them.
type Item struct {
	Stock int
	Extra map[string]json.RawMessage
}

// UnmarshalJSON pulls the stock count and parks every other key in Extra.
func (i *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	i.Stock = 0
	if raw, ok := fields["stock"]; ok {
		if err := json.Unmarshal(raw, &i.Stock); err != nil {
			return err
		}
		delete(fields, "stock")
	}
	if len(fields) > 0 {
		i.Extra = fields
	} else {
		i.Extra = nil
	}
	return nil
}

// MarshalJSON merges the stock count back with the opaque fields.
func (i Item) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(i.Extra)+1)
	for key, raw := range i.Extra {
		fields[key] = raw
	}
	stock, err := json.Marshal(i.Stock)
	if err != nil {
		return nil, err
	}
	fields["stock"] = stock
	return json.Marshal(fields)
}
