// Package rings implements the aura ring record store: id allocation, the
// V1 → V2 → V3 flag migration engine, the CRUD surface over the migrated
// container, and the change signal fired after every durable mutation.
//
// Every read migrates a legacy document before it proceeds. Every write
// persists the entire container under one flag key, then fires the signal.
package rings
