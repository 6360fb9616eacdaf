// Package model defines the durable entities shared by the engine and its
// storage ports: tenants, users, refresh tokens, one-time tokens and login
// attempts.
//
// Each entity is a single struct. The bun tags only describe how the SQL
// store serializes it; no other package depends on them.
package model
