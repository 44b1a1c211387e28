// Package schema describes the fields a node type stores in its model.
//
// A Schema maps attribute names to types. Node definitions are validated
// against the schema of their type before a diagram is built, so that a
// misspelled field or a number where a list of options was expected is
// reported up front rather than rendered as an empty control.
//
// Basic usage:
//
//	fields := schema.Schema{
//	    "text":    schema.String(),
//	    "options": schema.Slice(schema.String()),
//	    "method":  schema.Wrapped("model", schema.String()),
//	}
//
//	if err := schema.Validate(fields, map[string]any{"text": "Hi"}); err != nil {
//	    // Handle validation errors
//	}
//
// Every field is optional and nil always validates: it is how an editor
// records an unassigned field.
package schema
