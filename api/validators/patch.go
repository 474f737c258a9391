package validators

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	pkgerrors "github.com/billifyhq/billify-backend/pkg/errors"
)

// DecodeJSONPatch decodes a merge-patch body into dest and also returns
// the raw fields, so callers can tell an explicit null apart from an
// absent field.
func DecodeJSONPatch(r *http.Request, dest any) (map[string]json.RawMessage, error) {
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return nil, formatValidationErrors(err)
	}
	return fields, nil
}

// IsNullField reports whether the field was present in the body with an
// explicit JSON null.
func IsNullField(fields map[string]json.RawMessage, name string) bool {
	value, ok := fields[name]
	if !ok {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
