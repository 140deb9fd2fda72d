// Command reelsync mirrors an upstream media catalog into SQLite and
// resolves the mirrored items against a reference catalog.
//
// The sync commands handle bootstrap, incremental, and weekly
// reconcile passes; match resolves items against the reference API;
// review drives the manual confirmation workflow.
package main
