// Package environment provides the two built-in Environment implementations:
// a sequential Local environment that evaluates successors one at a time on
// the machine running the search, and a Cluster environment that submits
// each batch as a Slurm array job and polls
// a shared filesystem for results.
package environment
