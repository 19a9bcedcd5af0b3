// Package seedevents generates synthetic engagement histories so the
// scoring pipeline can be exercised against a realistic database.
package seedevents

// Config holds configuration for a seeding run.
type Config struct {
	DBPath    string // SQLite database file to write into
	NumUsers  int    // number of synthetic users
	Days      int    // days of history to generate, ending today
	Calculate bool   // run the score calculation after seeding
	Verbose   bool   // enable verbose logging
}
