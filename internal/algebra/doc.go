// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package algebra implements the symbolic core of the modeling language:
// the container (symbol registry), the index domain model (sets and
// aliases), the symbolic entities (parameters, variables, equations,
// models) with their sparse record stores, and the lazy expression tree
// they compose into.
//
// # Laziness
//
// No arithmetic ever happens in this package. Every operator method on an
// expression allocates a new immutable node in the owning container's node
// arena and returns a handle to it. Evaluation, meaning iterating index
// domains, folding sums and comparing sides of a relation, is the engine's
// job; this package only validates structure (arity, domain membership,
// index ordering) and hands the finished tree to the statement generator.
//
// # Relational operators define equations, they do not test
//
// Eq, Le and Ge on expressions build relational nodes that are consumed as
// equation definitions. They deliberately do not return booleans and must
// not be read as value comparisons; this mirrors the notation of the
// modeling language the generated statements target. The operand order is
// stored exactly as constructed and is never canonicalized, because
// equilibrium-class models attach meaning to which side a bound appears
// on. Wrap plain numbers in Number when the left operand of a relation is
// a literal; in strict containers an unwrapped literal there fails with
// moderr.AmbiguousEquationError.
//
// # Concurrency
//
// Expression construction and index resolution are pure except for arena
// appends, which the container serializes internally. Record stores and
// the dirty set are mutable shared state guarded by one coarse mutex per
// container; two goroutines may build expressions or set records on the
// same container, and their mutations serialize.
package algebra
