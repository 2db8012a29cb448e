package repository

import "encoding/json"

func marshalAttrs(attrs map[string]string) ([]byte, error) {
	return json.Marshal(attrs)
}

func unmarshalAttrs(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
