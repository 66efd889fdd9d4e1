// Package logx provides a thin structured logging facade over zerolog.
//
// The Logger value type is safe to copy and its zero value is a no-op,
// so components can accept a Logger without nil checks.
package logx
