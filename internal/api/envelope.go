package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is bumped when the envelope shape changes so clients
// can detect incompatible servers.
const envelopeVersion = 1

// envelope is the wire shape every API response is wrapped in.
type envelope struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in the standard
// {v, success, data|error} envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return &envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   apiErr,
		}, nil
	}

	success := len(status) > 0 && (status[0] == '1' || status[0] == '2' || status[0] == '3')
	return &envelope{
		V:       envelopeVersion,
		Success: success,
		Data:    v,
	}, nil
}
