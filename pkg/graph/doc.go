// Package graph defines the authoring graph the field core reads from.
// Nodes live in an arena and refer to each other by stable Index values;
// a built Graph is an immutable snapshot shared by concurrent queries.
package graph
