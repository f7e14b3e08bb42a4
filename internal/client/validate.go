package client

import (
	"fmt"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// validateOperationInput checks input against op's optional
// "hyprcat:expects" property shape list, the same SHACL-lite shapes
// jsonld.ValidateInput enforces server-side, so a caller can fail fast
// before ever sending the request. An operation with no declared shape
// accepts any input unchecked.
func validateOperationInput(op jsonld.Node, input map[string]interface{}) error {
	raw, ok := op.Get("hyprcat:expects")
	if !ok {
		return nil
	}
	shapes := jsonld.ParsePropertyShapes(raw)
	if len(shapes) == 0 {
		return nil
	}

	result := jsonld.ValidateInput(input, shapes)
	if result.OK() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors))
	for _, v := range result.Errors {
		violations = append(violations, fmt.Sprintf("%s %s: %s", v.Code, v.Path, v.Message))
	}
	return apierr.ValidationFailed("operation input validation failed").WithDetail(fmt.Sprint(violations))
}
