package api

import (
	"encoding/json"
	"fmt"
	"io"
)

// encodeBody turns a call's body argument into replayable bytes. []byte,
// json.RawMessage and io.Reader are sent as is; any other value, strings
// included, is JSON-encoded.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return data, nil
	}
}
