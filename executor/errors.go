package executor

import "errors"

// ErrMultiplePacketsToReservoir signals a commit-time invariant
// violation: a Reservoir may have at most one input edge (graph
// invariant 2), so at most one packet should ever target it in a
// tick. Seeing more means a compiler or graph bug upstream.
var ErrMultiplePacketsToReservoir = errors.New("flowsim/executor: multiple packets committed to one reservoir")
