// Package models defines the core domain models for Fundwise.
//
// # Models
//
//   - User: a registered account, identified by ID
//   - Fund: a named shared pool whose expenses are split among member users
//   - Transaction: a single recorded expense within a fund
//   - Split: one user's monetary portion of a transaction
//
// # Design Principles
//
//  1. Monetary amounts are int64 cents, never floats. Rounding remainders
//     from split arithmetic are assigned deterministically (see the
//     calculator package).
//  2. Relationships use ID strings instead of pointers, so models can be
//     serialized for the snapshot store and the HTTP document store
//     without cycles.
//  3. Transactions are immutable once created; the only lifecycle
//     operation after creation is deletion.
package models
