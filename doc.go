/*
Package espalier is a diagram editing engine for dialogue flows.

A diagram is a set of slots laid out on a grid. Each slot holds one node (a
dialogue state such as a multiple-choice question, a free text prompt, an HTTP
call or an end state), and nodes are linked through typed endpoints by
connections. Every node renders in one of two modes: edit, where its fields can
be changed, and preview, which shows what the end user will see.

Everything a diagram shows is derived from models. Keyed collections of models
are mirrored into views by synced view sets, so adding, removing or retyping a
model is all it takes to keep the canvas consistent.

# Usage

The root package wires a workspace: definitions are read from a directory of
YAML or JSON files, and edited diagrams are persisted as snapshots.

	ws, err := espalier.New("./diagrams")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	err = ws.Edit(ctx, "support", func(d *diagram.Diagram) error {
		_, err := d.ResetSlot("ask", states.TypeFreetext, diagram.ResetOptions{Render: true})
		return err
	})

Diagrams can also be built in code with package dsl, or served over HTTP with
package adapters/http (see cmd/espalier).

# Packages

  - pkg/lookup: insertion-ordered keyed map with change events.
  - pkg/model, pkg/views: model collections and the view sets synced to them.
  - pkg/plumbing: endpoints, connection groups and connections.
  - pkg/diagram: nodes, slots, modes and the diagram composition root.
  - pkg/states: the built-in node types.
  - pkg/config, pkg/dsl: declarative and programmatic diagram definitions.
  - pkg/session: the workspace manager with per-diagram locking.
  - pkg/adapters: memory, file and Redis persistence, and the HTTP API.
*/
package espalier
