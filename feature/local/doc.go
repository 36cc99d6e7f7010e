// Package local implements the reconciliation record type for a relational
// table reached through gorm.
//
// A Table is configured with its id column, the lookup column holding the
// remote identity and two timestamp columns: the last update and the last
// time the engine synchronized the row. Every write done through the adapter
// sets both, with the sync stamp strictly after the update stamp, so the next
// poll recognises the row as already synchronized.
//
// Database errors are classified for the engine. Constraint violations
// (duplicate keys, foreign keys, check constraints) are persistence errors and
// every other failure is transient.
package local
