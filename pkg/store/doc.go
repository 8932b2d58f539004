/*
Package store persists Markov-chain models in a SQLite database: the
validated transition matrix and state labels of each named model, plus the
empirical transition counts accumulated from observed trajectories.

It works with any database/sql driver that speaks SQLite. The numeric core
lives in the chain package and never touches the database; this package
only moves its inputs and outputs in and out of storage.
*/
package store
