package common

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeAndValidate unmarshals a raw message payload into the given struct and
// checks its validation tags. Any error means the payload is malformed and
// must be skipped, never processed.
func DecodeAndValidate(data []byte, payload interface{}) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("message failed validation: %w", err)
	}

	return nil
}
