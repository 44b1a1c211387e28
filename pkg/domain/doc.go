/*
Package domain contains the core vocabulary shared by the espalier packages.

It is kept pure and free of I/O so that adapters (HTTP, Redis, CLI) and the
diagram engine can exchange values without importing each other.

# Key Entities

  - Position: externally supplied grid coordinates of a slot.
  - NodeSnapshot / ConnectionSnapshot / Snapshot: serialisable views of a diagram.
  - SnapshotDiff: what changed between two snapshots.
  - ResolutionError / StaleReferenceError: the structural error taxonomy.
  - LifecycleHooks: observability callbacks fired by the diagram.
*/
package domain
