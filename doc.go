/*
Package stablebench provides CLI tooling to benchmark storage workloads over persistent memory.

The primary goal of stablebench is to count the instructions executed by an embedded SQL
engine, an ordered map and a file system when they store data in a persistent memory, and to
track how these counts evolve from one run to the next.

Workloads are grouped in suites (see pkg/suites). Each suite exposes its operations as a
service (see pkg/rpc) and registers benchmarks (see pkg/bench) which drive these operations.
*/
package stablebench
