/*
Package ports defines the driven ports (interfaces) for the diagram workspace.

These interfaces decouple the editing core from external implementations, allowing
the workspace to work with various storage backends and definition sources.

# Key Interfaces

  - DefinitionLoader: Responsible for loading diagram definitions (e.g., from a directory or memory).
  - DiagramStore: Responsible for persisting and loading diagram snapshots.
  - DistributedLocker: Provides distributed locking for concurrent edits of one diagram.
*/
package ports
