// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger value type with closure-based fields and a
// Service that can swap sinks/levels at runtime (config hot reload).
package logx
