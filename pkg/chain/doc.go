/*
Package chain implements core routines for discrete-time, finite-state,
homogeneous Markov chains: validating and wrapping a row-stochastic
transition matrix, sampling state trajectories, computing the stationary
distribution, propagating a probability distribution forward through time,
and empirically estimating transition probabilities (first-order and
lag-2 conditioned) from an observed trajectory.

All functions are pure and synchronous: a TransitionMatrix is immutable
after construction, randomness is injected explicitly through a
*rand.Rand, and nothing here performs I/O. Persistence of models and
accumulated empirical counts lives in the sibling store package.
*/
package chain
