// Package postgres implements the goGate persistence contracts on top of a
// PostgreSQL database. [Directory] backs the user directory, [KeyStore]
// backs API key records.
//
// Both types take a *sql.DB opened with the pgx stdlib driver; the caller
// owns the pool and its lifecycle. Schema setup lives in [RunMigrations].
package postgres
