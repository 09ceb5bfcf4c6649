package pgstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/thegoat123/thegoat"
)

const voterConstraint = "poll_votes_voter_unique"

// translate turns constraint violations into the errors the application knows about.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code.Name() {
	case "unique_violation":
		if pqErr.Constraint == voterConstraint {
			return thegoat.ErrAlreadyVoted
		}
		return fmt.Errorf("%w: %s", thegoat.ErrDuplicate, pqErr.Constraint)
	case "foreign_key_violation":
		return fmt.Errorf("%w: %s", thegoat.ErrReferenceMissing, pqErr.Constraint)
	}

	return err
}

// isMissing tells if err means the row does not exist. Malformed ids can't match any row either.
func isMissing(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "invalid_text_representation"
}

// orNotFound returns notFound when err means the row does not exist.
func orNotFound(err error, notFound error) error {
	if isMissing(err) {
		return notFound
	}
	return translate(err)
}

// validID tells if id can name a row at all. Ids are uuid columns, compared without casts so
// their indexes are used, which makes postgres reject any other input.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
