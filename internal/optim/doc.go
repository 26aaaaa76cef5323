// Package optim contains the numerical optimizers used by the controllers
// and the tuning tools: a box-constrained spectral projected gradient
// minimizer and an exhaustive grid search.
package optim
