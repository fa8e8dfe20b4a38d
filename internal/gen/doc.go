// Package gen renders validated expression trees into the engine's flat,
// line-oriented statement syntax.
//
// Rendering is deterministic: the same tree and index always produce
// byte-identical text, which debugging output and statement-length
// budgeting both rely on. The walker runs post-order on an explicit stack
// over the algebra package's node arena, so deeply chained expressions
// cannot exhaust the goroutine stack.
//
// Two render modes exist. Deferred mode emits indexed statements and
// leaves iteration to the engine. Expanded mode enumerates the filtered
// element tuples host-side and emits one scalar statement per instance;
// engines that only accept flat rows consume this form, and sparse
// where-filters guarantee that absent records never materialize as
// explicit zero terms.
package gen
