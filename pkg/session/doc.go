/*
Package session implements the diagram workspace: the set of live diagrams a
server edits, and the persistence orchestration behind them.

Every access to a diagram goes through the Manager, which serialises edits of
the same diagram (in process with reference-counted locks, across replicas with
an optional distributed locker) and writes a snapshot to the store after each
successful edit.
*/
package session
