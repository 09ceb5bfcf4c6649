package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/authentication"
	"github.com/thegoat123/thegoat/ranking"
)

// A PGStore is responsible of interacting with the storage layer using a Postgresql database.
type PGStore struct {
	dbString string
	db       *sqlx.DB
}

// New returns a PGStore configured for a given address string, using the "user=postgres dbname=thegoat ..." format.
func New(addr string) *PGStore {
	return &PGStore{
		dbString: addr,
	}
}

// Connect establish a connection with the database using the address given at initialization.
func (s *PGStore) Connect() error {
	db, err := sqlx.Connect("postgres", s.dbString)
	if err != nil {
		return err
	}

	s.db = db

	return nil
}

// DB returns the existing connection, making it suitable to perform requests not already supported by
// the store interface. If called while not connected, it will return nil.
func (s *PGStore) DB() *sqlx.DB {
	return s.db
}

// withTx runs fn in a transaction, committing if it returns no error.
func (s *PGStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

const selectPolls = "SELECT polls.*, COALESCE(users.name, '') AS author FROM polls LEFT JOIN users ON users.id = polls.created_by"

// loadOptions fetches the options of all polls in one query.
func loadOptions(ctx context.Context, q sqlx.QueryerContext, polls []*thegoat.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	ids := make([]string, len(polls))
	byID := make(map[string]*thegoat.Poll, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Options = []*thegoat.PollOption{}
	}

	options := []*thegoat.PollOption{}
	err := sqlx.SelectContext(ctx, q, &options, "SELECT * FROM poll_options WHERE poll_id = ANY($1::uuid[]) ORDER BY display_order, created_at", pq.Array(ids))
	if err != nil {
		return err
	}

	for _, o := range options {
		if p, ok := byID[o.PollID]; ok {
			p.Options = append(p.Options, o)
		}
	}

	return nil
}

func (s *PGStore) selectPolls(ctx context.Context, query string, args ...interface{}) ([]*thegoat.Poll, error) {
	polls := []*thegoat.Poll{}
	err := s.db.SelectContext(ctx, &polls, query, args...)
	if err != nil {
		return nil, err
	}

	if err := loadOptions(ctx, s.db, polls); err != nil {
		return nil, err
	}

	return polls, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// pollsQuery turns a filter into a query over polls, with its arguments.
func pollsQuery(f *thegoat.PollFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.AllStatuses {
		status := f.Status
		if status == "" {
			status = thegoat.StatusActive
		}
		conds = append(conds, "polls.status = "+arg(status))
	}
	if f.Category != "" && f.Category != thegoat.CategoryAll {
		conds = append(conds, "polls.category = "+arg(f.Category))
	}
	if f.Type != "" {
		conds = append(conds, "polls.poll_type = "+arg(f.Type))
	}
	if f.MinVotes > 0 {
		conds = append(conds, "polls.total_votes >= "+arg(f.MinVotes))
	}
	if f.HotOnly {
		conds = append(conds, "polls.is_hot")
	}
	if f.CreatedBy != "" {
		conds = append(conds, "polls.created_by = "+arg(f.CreatedBy))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + likeEscaper.Replace(q) + "%")
		conds = append(conds, fmt.Sprintf("(polls.title ILIKE %s OR polls.description ILIKE %s OR polls.category ILIKE %s)", p, p, p))
	}

	query := selectPolls
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	switch f.Sort {
	case thegoat.SortRecent:
		query += " ORDER BY polls.created_at DESC"
	case thegoat.SortViews:
		query += " ORDER BY polls.view_count DESC, polls.created_at DESC"
	case thegoat.SortHot:
		// same decay as ranking.Rank, computed by the database so pagination stays consistent
		query += fmt.Sprintf(" ORDER BY (polls.total_votes + polls.comment_count - 1) / POWER(EXTRACT(EPOCH FROM (%s::timestamptz - polls.created_at))::float8 / 3600 + %s::float8, %s::float8) DESC, polls.created_at DESC",
			arg(thegoat.NowFunc()), arg(ranking.TimebaseInHours), arg(ranking.Gravity))
	default:
		query += " ORDER BY polls.total_votes DESC, polls.created_at DESC"
	}

	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	return query, args
}

// https://www.citusdata.com/blog/2016/03/30/five-ways-to-paginate/
func (s *PGStore) ListPolls(ctx context.Context, filter *thegoat.PollFilter) ([]*thegoat.Poll, error) {
	query, args := pollsQuery(filter)
	return s.selectPolls(ctx, query, args...)
}

func (s *PGStore) FindPoll(ctx context.Context, id string) (*thegoat.Poll, error) {
	if !validID(id) {
		return nil, thegoat.ErrPollNotFound
	}

	poll := thegoat.Poll{}
	err := s.db.GetContext(ctx, &poll, selectPolls+" WHERE polls.id = $1", id)
	if err != nil {
		return nil, orNotFound(err, thegoat.ErrPollNotFound)
	}

	if err := loadOptions(ctx, s.db, []*thegoat.Poll{&poll}); err != nil {
		return nil, err
	}

	return &poll, nil
}

func insertOption(ctx context.Context, tx *sqlx.Tx, o *thegoat.PollOption) error {
	return tx.GetContext(ctx, &o.ID, "INSERT INTO poll_options (poll_id, option_text, option_image, vote_count, display_order, color, is_user_submitted, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id",
		o.PollID, o.Text, o.Image, o.VoteCount, o.DisplayOrder, o.Color, o.IsUserSubmitted, o.CreatedBy, o.CreatedAt,
	)
}

func (s *PGStore) InsertPoll(ctx context.Context, poll *thegoat.Poll) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &poll.ID, "INSERT INTO polls (title, description, poll_type, category, is_hot, is_featured, status, created_by, created_at, updated_at, ends_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id",
			poll.Title, poll.Description, poll.PollType, poll.Category, poll.IsHot, poll.IsFeatured, poll.Status, poll.CreatedBy, poll.CreatedAt, poll.UpdatedAt, poll.EndsAt,
		)
		if err != nil {
			return err
		}

		for _, o := range poll.Options {
			o.PollID = poll.ID
			if err := insertOption(ctx, tx, o); err != nil {
				return err
			}
		}

		return nil
	})

	return translate(err)
}

func (s *PGStore) UpdatePoll(ctx context.Context, poll *thegoat.Poll, edit *thegoat.OptionsEdit) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE polls SET title = $1, description = $2, category = $3, ends_at = $4, updated_at = $5 WHERE id = $6",
			poll.Title, poll.Description, poll.Category, poll.EndsAt, poll.UpdatedAt, poll.ID,
		)
		if err != nil {
			return orNotFound(err, thegoat.ErrPollNotFound)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return thegoat.ErrPollNotFound
		}

		if len(edit.Delete) > 0 {
			var counts []int64
			err := tx.SelectContext(ctx, &counts, "SELECT vote_count FROM poll_options WHERE id::text = ANY($1) AND poll_id = $2 FOR UPDATE", pq.Array(edit.Delete), poll.ID)
			if err != nil {
				return err
			}
			if len(counts) != len(edit.Delete) {
				return thegoat.ErrOptionNotFound
			}
			for _, c := range counts {
				if c > 0 {
					return thegoat.ErrOptionHasVotes
				}
			}

			_, err = tx.ExecContext(ctx, "DELETE FROM poll_options WHERE id::text = ANY($1)", pq.Array(edit.Delete))
			if err != nil {
				return err
			}
		}

		for _, o := range edit.Update {
			if !validID(o.ID) {
				return thegoat.ErrOptionNotFound
			}
			res, err := tx.ExecContext(ctx, "UPDATE poll_options SET option_text = $1, option_image = $2, color = $3, display_order = $4 WHERE id = $5 AND poll_id = $6",
				o.Text, o.Image, o.Color, o.DisplayOrder, o.ID, poll.ID,
			)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return thegoat.ErrOptionNotFound
			}
		}

		for _, o := range edit.Insert {
			o.PollID = poll.ID
			if err := insertOption(ctx, tx, o); err != nil {
				return err
			}
		}

		return nil
	})

	return translate(err)
}

func (s *PGStore) DeletePoll(ctx context.Context, id string) error {
	if !validID(id) {
		return thegoat.ErrPollNotFound
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM polls WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return thegoat.ErrPollNotFound
	}

	return nil
}

func (s *PGStore) IncrementPollCounter(ctx context.Context, id string, counter thegoat.Counter) (int64, error) {
	switch counter {
	case thegoat.CounterViews, thegoat.CounterShares:
	default:
		return 0, thegoat.BadRequest(fmt.Errorf("unknown counter %q", counter))
	}

	if !validID(id) {
		return 0, thegoat.ErrPollNotFound
	}

	var n int64
	col := string(counter)
	err := s.db.GetContext(ctx, &n, fmt.Sprintf("UPDATE polls SET %s = %s + 1 WHERE id = $1 RETURNING %s", col, col, col), id)
	if err != nil {
		return 0, orNotFound(err, thegoat.ErrPollNotFound)
	}

	return n, nil
}

func (s *PGStore) InsertOption(ctx context.Context, option *thegoat.PollOption) error {
	err := s.db.GetContext(ctx, &option.ID, `INSERT INTO poll_options (poll_id, option_text, option_image, vote_count, display_order, color, is_user_submitted, created_by, created_at)
		SELECT $1::uuid, $2::text, $3::text, $4::bigint, $5::integer, $6::text, $7::boolean, $8::uuid, $9::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM poll_options WHERE poll_id = $1::uuid AND lower(option_text) = lower($2::text))
		RETURNING id`,
		option.PollID, option.Text, option.Image, option.VoteCount, option.DisplayOrder, option.Color, option.IsUserSubmitted, option.CreatedBy, option.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return thegoat.ErrDuplicate
	}
	if err != nil {
		return translate(err)
	}

	return nil
}

func (s *PGStore) DeleteOption(ctx context.Context, pollID string, optionID string) error {
	if !validID(pollID) || !validID(optionID) {
		return thegoat.ErrOptionNotFound
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM poll_options WHERE id = $1 AND poll_id = $2 AND vote_count = 0", optionID, pollID)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	var votes int64
	err = s.db.GetContext(ctx, &votes, "SELECT vote_count FROM poll_options WHERE id = $1 AND poll_id = $2", optionID, pollID)
	if err != nil {
		return orNotFound(err, thegoat.ErrOptionNotFound)
	}

	return thegoat.ErrOptionHasVotes
}

func (s *PGStore) UpdateOptionImage(ctx context.Context, optionID string, url string) error {
	if !validID(optionID) {
		return thegoat.ErrOptionNotFound
	}

	res, err := s.db.ExecContext(ctx, "UPDATE poll_options SET option_image = $1 WHERE id = $2", url, optionID)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return thegoat.ErrOptionNotFound
	}

	return nil
}

// InsertVote locks the poll row first, so concurrent votes on a poll are serialized and the
// counters always add up.
func (s *PGStore) InsertVote(ctx context.Context, vote *thegoat.Vote) error {
	if !validID(vote.PollID) {
		return thegoat.ErrPollNotFound
	}
	if !validID(vote.OptionID) {
		return thegoat.ErrUnknownOption
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var id string
		err := tx.GetContext(ctx, &id, "SELECT id FROM polls WHERE id = $1 FOR UPDATE", vote.PollID)
		if err != nil {
			return orNotFound(err, thegoat.ErrPollNotFound)
		}

		res, err := tx.ExecContext(ctx, "UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = $1 AND poll_id = $2", vote.OptionID, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return thegoat.ErrUnknownOption
		}

		err = tx.GetContext(ctx, &vote.ID, "INSERT INTO poll_votes (poll_id, option_id, user_id, ip_address, voter_key, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
			id, vote.OptionID, vote.UserID, vote.IPAddress, vote.VoterKey, vote.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "UPDATE polls SET total_votes = total_votes + 1 WHERE id = $1", id)
		return err
	})

	return translate(err)
}

func (s *PGStore) FindVote(ctx context.Context, pollID string, voterKey string) (*thegoat.Vote, error) {
	if !validID(pollID) {
		return nil, nil
	}

	vote := thegoat.Vote{}
	err := s.db.GetContext(ctx, &vote, "SELECT * FROM poll_votes WHERE poll_id = $1 AND voter_key = $2", pollID, voterKey)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &vote, nil
}

func (s *PGStore) ListVotes(ctx context.Context, pollID string) ([]*thegoat.Vote, error) {
	if !validID(pollID) {
		return []*thegoat.Vote{}, nil
	}

	votes := []*thegoat.Vote{}
	err := s.db.SelectContext(ctx, &votes, "SELECT * FROM poll_votes WHERE poll_id = $1 ORDER BY created_at", pollID)
	if err != nil {
		return nil, err
	}

	return votes, nil
}

func (s *PGStore) ListRecentVotes(ctx context.Context, pollID string, limit int) ([]*thegoat.RecentVote, error) {
	if !validID(pollID) {
		return []*thegoat.RecentVote{}, nil
	}

	votes := []*thegoat.RecentVote{}
	err := s.db.SelectContext(ctx, &votes, `SELECT poll_votes.*, poll_options.option_text, poll_options.color AS option_color, users.name AS user_name
		FROM poll_votes
		JOIN poll_options ON poll_options.id = poll_votes.option_id
		LEFT JOIN users ON users.id = poll_votes.user_id
		WHERE poll_votes.poll_id = $1
		ORDER BY poll_votes.created_at DESC
		LIMIT $2`, pollID, limit)
	if err != nil {
		return nil, err
	}

	return votes, nil
}

func (s *PGStore) ListPollsVotedBy(ctx context.Context, userID string) ([]*thegoat.Poll, error) {
	return s.selectPolls(ctx, selectPolls+" JOIN poll_votes ON poll_votes.poll_id = polls.id WHERE poll_votes.user_id = $1 ORDER BY poll_votes.created_at DESC", userID)
}

const selectComments = `SELECT poll_comments.*, COALESCE(users.name, '') AS author, poll_options.option_text, poll_options.color AS option_color
	FROM poll_comments
	LEFT JOIN users ON users.id = poll_comments.user_id
	LEFT JOIN poll_options ON poll_options.id = poll_comments.option_id`

func (s *PGStore) ListComments(ctx context.Context, pollID string, viewerID string) ([]*thegoat.CommentSeenByUser, error) {
	if !validID(pollID) {
		return []*thegoat.CommentSeenByUser{}, nil
	}

	comments := []*thegoat.CommentSeenByUser{}
	err := s.db.SelectContext(ctx, &comments, `SELECT c.*, EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = c.id AND comment_likes.user_id = NULLIF($2, '')::uuid) AS liked
		FROM (`+selectComments+` WHERE poll_comments.poll_id = $1) c
		ORDER BY c.created_at DESC`, pollID, viewerID)
	if err != nil {
		return nil, err
	}

	return comments, nil
}

func (s *PGStore) ListUserComments(ctx context.Context, userID string) ([]*thegoat.UserComment, error) {
	comments := []*thegoat.UserComment{}
	err := s.db.SelectContext(ctx, &comments, `SELECT c.*, polls.title AS poll_title, polls.category AS poll_category
		FROM (`+selectComments+` WHERE poll_comments.user_id = $1 AND poll_comments.deleted_at IS NULL) c
		JOIN polls ON polls.id = c.poll_id
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	return comments, nil
}

func (s *PGStore) FindComment(ctx context.Context, id string) (*thegoat.Comment, error) {
	if !validID(id) {
		return nil, thegoat.ErrCommentNotFound
	}

	comment := thegoat.Comment{}
	err := s.db.GetContext(ctx, &comment, selectComments+" WHERE poll_comments.id = $1", id)
	if err != nil {
		return nil, orNotFound(err, thegoat.ErrCommentNotFound)
	}

	return &comment, nil
}

func (s *PGStore) InsertComment(ctx context.Context, comment *thegoat.Comment) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if comment.OptionID != nil {
			if !validID(*comment.OptionID) {
				return thegoat.ErrUnknownOption
			}
			var ok bool
			err := tx.GetContext(ctx, &ok, "SELECT EXISTS(SELECT 1 FROM poll_options WHERE id = $1 AND poll_id = $2)", *comment.OptionID, comment.PollID)
			if err != nil {
				return err
			}
			if !ok {
				return thegoat.ErrUnknownOption
			}
		}

		err := tx.GetContext(ctx, &comment.ID, "INSERT INTO poll_comments (poll_id, option_id, user_id, content, likes, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
			comment.PollID, comment.OptionID, comment.UserID, comment.Content, comment.Likes, comment.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "UPDATE polls SET comment_count = comment_count + 1 WHERE id = $1", comment.PollID)
		return err
	})

	return translate(err)
}

func (s *PGStore) DeleteComment(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, thegoat.ErrCommentNotFound
	}

	var soft bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		row := struct {
			PollID string `db:"poll_id"`
			Likes  int64  `db:"likes"`
		}{}
		err := tx.GetContext(ctx, &row, "SELECT poll_id, likes FROM poll_comments WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			return orNotFound(err, thegoat.ErrCommentNotFound)
		}

		if row.Likes > 0 {
			soft = true
			_, err = tx.ExecContext(ctx, "UPDATE poll_comments SET content = $1, deleted_at = $2 WHERE id = $3", thegoat.DeletedCommentContent, thegoat.NowFunc(), id)
			return err
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM poll_comments WHERE id = $1", id)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE polls SET comment_count = GREATEST(comment_count - 1, 0) WHERE id = $1", row.PollID)
		return err
	})

	return soft, err
}

func (s *PGStore) ToggleCommentLike(ctx context.Context, commentID string, userID string) (bool, int64, error) {
	if !validID(commentID) {
		return false, 0, thegoat.ErrCommentNotFound
	}

	var liked bool
	var likes int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &likes, "SELECT likes FROM poll_comments WHERE id = $1 FOR UPDATE", commentID)
		if err != nil {
			return orNotFound(err, thegoat.ErrCommentNotFound)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2", commentID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		delta := -1
		if n == 0 {
			liked = true
			delta = 1
			_, err = tx.ExecContext(ctx, "INSERT INTO comment_likes (comment_id, user_id, created_at) VALUES ($1, $2, $3)", commentID, userID, thegoat.NowFunc())
			if err != nil {
				return err
			}
		}

		return tx.GetContext(ctx, &likes, "UPDATE poll_comments SET likes = GREATEST(likes + $1, 0) WHERE id = $2 RETURNING likes", delta, commentID)
	})

	return liked, likes, translate(err)
}

func (s *PGStore) ToggleBookmark(ctx context.Context, userID string, pollID string) (bool, error) {
	if !validID(pollID) {
		return false, thegoat.ErrReferenceMissing
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM poll_bookmarks WHERE user_id = $1 AND poll_id = $2", userID, pollID)
	if err != nil {
		return false, translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO poll_bookmarks (user_id, poll_id, created_at) VALUES ($1, $2, $3)", userID, pollID, thegoat.NowFunc())
	if err != nil {
		return false, translate(err)
	}

	return true, nil
}

func (s *PGStore) ListBookmarkedPolls(ctx context.Context, userID string) ([]*thegoat.Poll, error) {
	return s.selectPolls(ctx, selectPolls+" JOIN poll_bookmarks ON poll_bookmarks.poll_id = polls.id WHERE poll_bookmarks.user_id = $1 ORDER BY poll_bookmarks.created_at DESC", userID)
}

func (s *PGStore) BookmarkStatuses(ctx context.Context, userID string, pollIDs []string) (map[string]bool, error) {
	statuses := make(map[string]bool, len(pollIDs))
	for _, id := range pollIDs {
		statuses[id] = false
	}

	marked := []string{}
	err := s.db.SelectContext(ctx, &marked, "SELECT poll_id FROM poll_bookmarks WHERE user_id = $1 AND poll_id::text = ANY($2)", userID, pq.Array(pollIDs))
	if err != nil {
		return nil, err
	}
	for _, id := range marked {
		statuses[id] = true
	}

	return statuses, nil
}

func (s *PGStore) InsertNotification(ctx context.Context, n *thegoat.Notification) error {
	err := s.db.GetContext(ctx, &n.ID, "INSERT INTO notifications (user_id, kind, title, description, related_id, read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		n.UserID, n.Kind, n.Title, n.Description, n.RelatedID, n.Read, n.CreatedAt,
	)

	return translate(err)
}

func (s *PGStore) ListNotifications(ctx context.Context, userID string) ([]*thegoat.Notification, error) {
	notifs := []*thegoat.Notification{}
	err := s.db.SelectContext(ctx, &notifs, "SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}

	return notifs, nil
}

func (s *PGStore) MarkNotificationRead(ctx context.Context, userID string, id string) error {
	if !validID(id) {
		return thegoat.ErrNotificationNotFound
	}

	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return thegoat.ErrNotificationNotFound
	}

	return nil
}

func (s *PGStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read", userID)
	return translate(err)
}

func (s *PGStore) ClearNotifications(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE user_id = $1", userID)
	return translate(err)
}

func (s *PGStore) FindUserByLogin(ctx context.Context, name string) (*thegoat.User, error) {
	user := thegoat.User{}
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE name=$1", name)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *PGStore) FindUser(ctx context.Context, id string) (*thegoat.User, error) {
	if !validID(id) {
		return nil, nil
	}

	user := thegoat.User{}
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *PGStore) CreateOrUpdateUser(ctx context.Context, login string, email string) (string, error) {
	var id string
	now := thegoat.NowFunc()
	err := s.db.GetContext(ctx, &id, "INSERT INTO users (name, email, created_at, last_login_at) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO UPDATE SET last_login_at = $4 RETURNING id", login, email, now, now)
	if err != nil {
		return "", translate(err)
	}

	return id, nil
}

func (s *PGStore) FindCredentials(ctx context.Context, login string) (*authentication.Credentials, error) {
	row := struct {
		Name         string `db:"name"`
		Email        string `db:"email"`
		PasswordHash string `db:"password_hash"`
	}{}
	err := s.db.GetContext(ctx, &row, "SELECT name, email, COALESCE(password_hash, '') AS password_hash FROM users WHERE name=$1", login)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &authentication.Credentials{Login: row.Name, Email: row.Email, PasswordHash: row.PasswordHash}, nil
}

func (s *PGStore) InsertCredentials(ctx context.Context, c *authentication.Credentials) error {
	now := thegoat.NowFunc()
	_, err := s.db.ExecContext(ctx, "INSERT INTO users (name, email, password_hash, created_at, last_login_at) VALUES ($1, $2, $3, $4, $5)", c.Login, c.Email, c.PasswordHash, now, now)

	return translate(err)
}

var _ thegoat.Store = (*PGStore)(nil)
