package thegoat

import (
	"context"
	"fmt"
)

// CastVote records the vote of identity for the option optionID of the poll pollID and returns
// the poll with its updated counters.
//
// A closed poll is reported before any duplicate vote. Uniqueness of the vote is left to the
// store, which refuses a second vote of the same identity with ErrAlreadyVoted.
func CastVote(ctx context.Context, store VoteStore, pollID string, optionID string, identity Identity) (*Poll, error) {
	poll, err := store.FindPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if poll.IsClosed(NowFunc()) {
		return nil, ErrPollClosed
	}

	if poll.Option(optionID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
	}

	vote := NewVote(poll.ID, optionID, identity)
	if err := store.InsertVote(ctx, vote); err != nil {
		return nil, err
	}

	return store.FindPoll(ctx, poll.ID)
}
