// Package mail defines the outgoing email port used by the engine and a
// few dispatchers for it.
//
// Every send is best-effort: the engine logs dispatch failures and never
// lets them change the outcome of the operation that triggered them.
// Message bodies are rendered by the concrete dispatcher; this package
// only carries the facts a template needs.
package mail
