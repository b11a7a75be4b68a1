// Package core holds the query client contracts, domain types, configuration
// and error taxonomy. The auth, executor, account and catalog packages build
// on it; core imports none of them.
package core
