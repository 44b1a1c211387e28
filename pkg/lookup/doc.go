/*
Package lookup provides Lookup, an insertion-ordered keyed container that
notifies listeners when its membership changes.

Lookup is the building block used by the rest of espalier for anything that
needs "a map that remembers order and can be observed": model collections,
view sets, canvas elements and wires.

# Semantics

  - Get and Remove on a missing key are no-ops, never errors.
  - Add on an existing key overwrites the value and keeps the key's original position.
  - Keys, Values, Items and Pairs return copies.
  - EventAdd and EventRemove are emitted synchronously, after the structural change.

Lookup is not safe for concurrent use. Listeners may re-enter the lookup.
*/
package lookup
