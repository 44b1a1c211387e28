/*
Package dsl provides a Go DSL for programmatically constructing diagram definitions.

It is the code-first counterpart of the YAML definitions read by pkg/config:
slots, their node types and fields, and the connections between them, declared
with a fluent builder. This is particularly useful for tests and for seeding
a workspace with diagrams generated at runtime.

Example usage:

	b := dsl.New("support")

	b.Add("ask").
		Choice("Did that help?", "yes", "no").
		To("bye")

	b.Add("bye").
		At(1, 0).
		End("Thanks!").
		Preview()

	d, err := b.Build(states.NewRegistry(), canvas.NewMemory())
*/
package dsl
