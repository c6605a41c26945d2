package node

import "errors"

var (
	// ErrNegativeAmount is returned by operations that add or
	// subtract quantities when given a negative delta.
	ErrNegativeAmount = errors.New("node: must add/subtract a non-negative number")
	// ErrNegativeSwap is returned by Exchanger.Swap when amount < 0.
	ErrNegativeSwap = errors.New("node: cannot swap negative amount of token")
	// ErrInvalidToken is returned when a token name fails lexical
	// validation.
	ErrInvalidToken = errors.New("node: token must follow javascript variable naming format")
	// ErrInvalidLabel is returned when a label fails lexical
	// validation.
	ErrInvalidLabel = errors.New("node: label must follow javascript variable naming format")
	// ErrMissingSwapIndex is returned when an edge connects to or
	// from an Exchanger without specifying which pipe slot.
	ErrMissingSwapIndex = errors.New("node: missing swap input index")
	// ErrPipeIndexOutOfRange is returned when a pipe index is
	// requested that is neither an existing slot nor the next
	// contiguous one.
	ErrPipeIndexOutOfRange = errors.New("node: swap index out of range")
	// ErrDuplicateTokenTypes is returned when an Exchanger is
	// configured with tokenA == tokenB.
	ErrDuplicateTokenTypes = errors.New("node: duplicate token types not allowed")
	// ErrTokensNotDefined is returned when an Exchanger is configured
	// with an empty token name.
	ErrTokensNotDefined = errors.New("node: not all token names are defined")
	// ErrNonPositiveAmount is returned when an Exchanger is
	// configured with a non-positive amount for either side.
	ErrNonPositiveAmount = errors.New("node: all tokens must have positive amount")
	// ErrNonPositiveConstraint describes a non-positive transformer
	// recipe constraint. No function in this package returns it:
	// SetRequiredInputPerUnit treats a non-positive amount as removing
	// that token from the recipe.
	ErrNonPositiveConstraint = errors.New("node: must have positive constraint")
)
