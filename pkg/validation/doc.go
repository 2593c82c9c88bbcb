// Package validation checks submitted form values. A form is turned into an
// OpenAPI 3 object schema and the typed values are validated against it with
// kin-openapi.
package validation
