package graph

import (
	"errors"

	"github.com/flowsim/flowsim/node"
)

// Re-exported so callers that only import graph still see the
// node-kind-specific validation errors (negative amounts, swap
// config, lexical rules) alongside the graph-structural ones below.
var (
	ErrNegativeAmount      = node.ErrNegativeAmount
	ErrNegativeSwap        = node.ErrNegativeSwap
	ErrInvalidToken        = node.ErrInvalidToken
	ErrInvalidLabel        = node.ErrInvalidLabel
	ErrMissingSwapIndex    = node.ErrMissingSwapIndex
	ErrPipeIndexOutOfRange = node.ErrPipeIndexOutOfRange
	ErrDuplicateTokenTypes = node.ErrDuplicateTokenTypes
	ErrTokensNotDefined    = node.ErrTokensNotDefined
	ErrNonPositiveAmount   = node.ErrNonPositiveAmount
	ErrNonPositiveConstraint = node.ErrNonPositiveConstraint
)

var (
	ErrIDExists         = errors.New("graph: id already exists")
	ErrDuplicateLabel   = errors.New("graph: duplicate label")
	ErrIDNotFound       = errors.New("graph: id not found")
	ErrEdgeIDExists     = errors.New("graph: edge id already exists")
	ErrUnknownEndpoint  = errors.New("graph: connecting Node with non-existing id")
	ErrSelfLoop         = errors.New("graph: cannot connect to self")
	ErrEdgeFromEdge     = errors.New("graph: edge must not start from edge")
	ErrEdgeToEdge       = errors.New("graph: edge must not point to edge")
	ErrNegativeWeight   = errors.New("graph: output weight must be >= 0")
	ErrEdgeNotOnGate    = errors.New("graph: the output edge is not connected to this gate")
	ErrNotConverter     = errors.New("graph: Selected element is not a converter")
	ErrNotGate          = errors.New("graph: Selected element is not a gate")
	ErrTokenNotUpstream = errors.New("graph: token is not produced upstream of this converter")
)
