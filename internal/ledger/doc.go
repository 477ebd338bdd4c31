// Package ledger is the client side of the notes contract.
//
// Reads (getNotesCount, getNote, rewardAmount) go through a Backend, normally
// an *ethclient.Client connected to a node. Writes (uploadNote, likeNote,
// dislikeNote) are packed here and handed to a Transactor, normally the
// user's wallet, which asks for approval, signs and broadcasts. A write
// returns once its receipt is mined; a reverted receipt is an error.
//
// Errors carry an apperr kind:
//
//   - ErrUserRejected when the wallet declined to sign
//   - ErrTimeout when the context deadline expired
//   - ErrRemote for every other node, decode or revert failure
//
// The contract owns index validation; an index past the end is whatever the
// contract answers.
package ledger
