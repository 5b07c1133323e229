// Command reuse-core is unused as a top-level binary — the module
// exposes its functionality as libraries (reuseagent, reusestore,
// external, similarity, reuseembed) plus the cmd/reusectl operator CLI.
// This file exists only so `go build ./...` has a root package to
// report on.
package main

func main() {}
