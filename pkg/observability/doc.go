/*
Package observability provides tools for monitoring the diagram engine.

It includes lifecycle hooks that log node and connection events, a combinator
that fans one event out to several hook sets, and a Prometheus recorder that
counts view churn and lifecycle events.
*/
package observability
