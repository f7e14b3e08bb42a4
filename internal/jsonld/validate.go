package jsonld

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Error codes surfaced by the validate* operations below.
const (
	CodeMissingID               = "MISSING_ID"
	CodeMissingType             = "MISSING_TYPE"
	CodeInvalidIRI              = "INVALID_IRI"
	CodeMissingRequiredProperty = "MISSING_REQUIRED_PROPERTY"
	CodeInvalidPropertyType     = "INVALID_PROPERTY_TYPE"
	CodeSHACLViolation          = "SHACL_VIOLATION"
)

// Violation is a single failed (or merely noted) check, naming the
// property path it concerns.
type Violation struct {
	Code    string
	Path    string
	Message string
}

// Result is the outcome of a validate* call: hard errors that should
// reject the input, plus warnings that should not.
type Result struct {
	Errors   []Violation
	Warnings []Violation
}

// OK reports whether result carries no errors (warnings do not count).
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Error renders every error violation, so a Result can be returned
// directly where callers expect an error.
func (r Result) Error() string {
	if r.OK() {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, v := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s %s: %s", v.Code, v.Path, v.Message))
	}
	return "jsonld: " + strings.Join(parts, "; ")
}

// PropertyShape is a single SHACL-lite constraint on one input
// property: required plus the optional datatype/length/range/pattern/
// enum checks a property shape may carry.
type PropertyShape struct {
	Property     string
	Required     bool
	Datatype     string // string, integer, decimal, boolean, datetime, uri
	MinLength    *int
	MaxLength    *int
	MinInclusive *float64
	MaxInclusive *float64
	Pattern      string
	In           []interface{}
}

// ParsePropertyShapes decodes a node's "hyprcat:expects" raw value (a
// list of {property, required, datatype, ...} maps) into PropertyShape
// values. An entry missing "property" is skipped.
func ParsePropertyShapes(raw interface{}) []PropertyShape {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	shapes := make([]PropertyShape, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		property, _ := m["property"].(string)
		if property == "" {
			continue
		}

		shape := PropertyShape{Property: property}
		shape.Required, _ = m["required"].(bool)
		shape.Datatype, _ = m["datatype"].(string)
		shape.Pattern, _ = m["pattern"].(string)

		if v, ok := m["minLength"].(float64); ok {
			n := int(v)
			shape.MinLength = &n
		}
		if v, ok := m["maxLength"].(float64); ok {
			n := int(v)
			shape.MaxLength = &n
		}
		if v, ok := m["minInclusive"].(float64); ok {
			shape.MinInclusive = &v
		}
		if v, ok := m["maxInclusive"].(float64); ok {
			shape.MaxInclusive = &v
		}
		if in, ok := m["in"].([]interface{}); ok {
			shape.In = in
		}

		shapes = append(shapes, shape)
	}
	return shapes
}

// ValidateResource checks n's structural minimums: MISSING_ID when
// @id is absent, INVALID_IRI when @id is present but not a string,
// MISSING_TYPE when no @type is declared. A node with no @context
// carries only a warning, since context can be inherited.
func ValidateResource(n Node) Result {
	var result Result

	if _, ok := n.raw["@context"]; !ok {
		result.Warnings = append(result.Warnings, Violation{
			Path:    "@context",
			Message: "resource has no @context; relying on an inherited context",
		})
	}

	idVal, hasID := n.raw["@id"]
	switch {
	case !hasID:
		result.Errors = append(result.Errors, Violation{
			Code: CodeMissingID, Path: "@id", Message: "resource @id is required",
		})
	default:
		if _, isString := idVal.(string); !isString {
			result.Errors = append(result.Errors, Violation{
				Code: CodeInvalidIRI, Path: "@id", Message: "resource @id must be a string",
			})
		}
	}

	if len(n.Types()) == 0 {
		result.Errors = append(result.Errors, Violation{
			Code: CodeMissingType, Path: "@type", Message: "resource @type is required",
		})
	}

	return result
}

var allowedOperationMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// ValidateOperation checks an affordance's method and title. It does
// not reuse ValidateResource since operations are never independently
// identified and carry no @id/@type of their own.
func ValidateOperation(op Node) Result {
	var result Result

	method := strings.ToUpper(op.GetString("hydra:method"))
	if !allowedOperationMethods[method] {
		result.Errors = append(result.Errors, Violation{
			Code:    CodeInvalidPropertyType,
			Path:    "hydra:method",
			Message: fmt.Sprintf("method %q is not one of GET, POST, PUT, PATCH, DELETE", method),
		})
	}
	if op.GetString("hydra:title") == "" {
		result.Errors = append(result.Errors, Violation{
			Code: CodeMissingRequiredProperty, Path: "hydra:title", Message: "operation title is required",
		})
	}

	return result
}

// ValidateInput checks payload against shapes: an absent required
// property fails MISSING_REQUIRED_PROPERTY; a present value of the
// wrong datatype fails INVALID_PROPERTY_TYPE (short-circuiting the
// shape's remaining checks); any of minLength/maxLength/minInclusive/
// maxInclusive/pattern/in failing fails SHACL_VIOLATION. A missing
// optional property short-circuits the rest of its own checks only.
func ValidateInput(payload map[string]interface{}, shapes []PropertyShape) Result {
	var result Result

	for _, shape := range shapes {
		val, present := payload[shape.Property]
		if !present {
			if shape.Required {
				result.Errors = append(result.Errors, Violation{
					Code: CodeMissingRequiredProperty, Path: shape.Property,
					Message: fmt.Sprintf("missing required property %q", shape.Property),
				})
			}
			continue
		}

		if !matchesDatatype(val, shape.Datatype) {
			result.Errors = append(result.Errors, Violation{
				Code: CodeInvalidPropertyType, Path: shape.Property,
				Message: fmt.Sprintf("property %q must be of type %s", shape.Property, shape.Datatype),
			})
			continue
		}

		if msg, ok := checkShaclConstraints(val, shape); !ok {
			result.Errors = append(result.Errors, Violation{
				Code: CodeSHACLViolation, Path: shape.Property, Message: msg,
			})
		}
	}

	return result
}

func matchesDatatype(val interface{}, datatype string) bool {
	switch datatype {
	case "":
		return true
	case "string", "uri":
		_, ok := val.(string)
		return ok
	case "integer":
		f, ok := val.(float64)
		return ok && f == math.Trunc(f)
	case "decimal":
		_, ok := val.(float64)
		return ok
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "datetime":
		s, ok := val.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	default:
		return true
	}
}

func checkShaclConstraints(val interface{}, shape PropertyShape) (string, bool) {
	if s, ok := val.(string); ok {
		if shape.MinLength != nil && len(s) < *shape.MinLength {
			return fmt.Sprintf("property %q must have length >= %d", shape.Property, *shape.MinLength), false
		}
		if shape.MaxLength != nil && len(s) > *shape.MaxLength {
			return fmt.Sprintf("property %q must have length <= %d", shape.Property, *shape.MaxLength), false
		}
		if shape.Pattern != "" {
			if re, err := regexp.Compile(shape.Pattern); err == nil && !re.MatchString(s) {
				return fmt.Sprintf("property %q does not match pattern %q", shape.Property, shape.Pattern), false
			}
		}
	}
	if f, ok := val.(float64); ok {
		if shape.MinInclusive != nil && f < *shape.MinInclusive {
			return fmt.Sprintf("property %q must be >= %v", shape.Property, *shape.MinInclusive), false
		}
		if shape.MaxInclusive != nil && f > *shape.MaxInclusive {
			return fmt.Sprintf("property %q must be <= %v", shape.Property, *shape.MaxInclusive), false
		}
	}
	if len(shape.In) > 0 && !inSet(shape.In, val) {
		return fmt.Sprintf("property %q must be one of %v", shape.Property, shape.In), false
	}
	return "", true
}

func inSet(set []interface{}, val interface{}) bool {
	for _, v := range set {
		if v == val {
			return true
		}
	}
	return false
}

// Validator translates CURIEs against a fixed namespace table. The
// validate* operations above are free functions since none of them
// need a namespace table; Validator exists for Expand/Compact (its
// Validate* methods only delegate to those free functions) and is
// passed explicitly rather than kept as a package-level global.
type Validator struct {
	namespaces map[string]string
}

// NewValidator builds a Validator over namespaces.
func NewValidator(namespaces map[string]string) *Validator {
	return &Validator{namespaces: namespaces}
}

// ValidateResource delegates to the free function of the same name.
func (v *Validator) ValidateResource(n Node) Result { return ValidateResource(n) }

// ValidateOperation delegates to the free function of the same name.
func (v *Validator) ValidateOperation(op Node) Result { return ValidateOperation(op) }

// ValidateInput delegates to the free function of the same name.
func (v *Validator) ValidateInput(payload map[string]interface{}, shapes []PropertyShape) Result {
	return ValidateInput(payload, shapes)
}

// Namespaces returns the namespace table the Validator was built with.
func (v *Validator) Namespaces() map[string]string { return v.namespaces }

// Expand (expandIRI) resolves a CURIE like "schema:name" to its full
// IRI using the Validator's namespace table. A CURIE with an unknown
// prefix, or a string that is already an absolute IRI, is returned
// unchanged.
func (v *Validator) Expand(curie string) string {
	for i := 0; i < len(curie); i++ {
		if curie[i] == ':' {
			prefix, rest := curie[:i], curie[i+1:]
			if base, ok := v.namespaces[prefix]; ok {
				return base + rest
			}
			break
		}
	}
	return curie
}

// Compact (compactIRI) is Expand's inverse: it rewrites a fully
// qualified IRI back to its shortest CURIE form against the longest
// matching namespace base, or returns iri unchanged if none match.
func (v *Validator) Compact(iri string) string {
	bestPrefix, bestBase := "", ""
	for prefix, base := range v.namespaces {
		if strings.HasPrefix(iri, base) && len(base) > len(bestBase) {
			bestPrefix, bestBase = prefix, base
		}
	}
	if bestBase == "" {
		return iri
	}
	return bestPrefix + ":" + iri[len(bestBase):]
}
