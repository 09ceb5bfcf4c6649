package thegoat

import (
	"fmt"
	"strings"
	"time"
)

const (
	NotificationLike    = "like"
	NotificationVote    = "vote"
	NotificationComment = "comment"
)

type Notification struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Kind        string    `db:"kind" json:"type"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	RelatedID   string    `db:"related_id" json:"related_id"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// displayName is how a user is named in the notifications of others.
func displayName(u *User) string {
	if u == nil {
		return "누군가"
	}
	name := strings.Split(u.Email, "@")[0]
	if name == "" {
		name = u.Name
	}
	if name == "" {
		name = "누군가"
	}
	return name
}

// NewLikeNotification tells the author of comment that liker liked it.
func NewLikeNotification(comment *Comment, liker *User) *Notification {
	name := displayName(liker)

	return &Notification{
		UserID:      comment.UserID,
		Kind:        NotificationLike,
		Title:       "댓글 좋아요",
		Description: fmt.Sprintf("%s님이 \"%s\" 댓글을 좋아합니다", name, comment.Excerpt(30)),
		RelatedID:   comment.PollID,
		CreatedAt:   NowFunc(),
	}
}

// NewVoteNotification tells the creator of poll that someone voted on it. Voters stay anonymous,
// signed in or not. It returns nil when nobody is to be notified.
func NewVoteNotification(poll *Poll, voterID string) *Notification {
	if poll.CreatedBy == nil || poll.IsOwnedBy(voterID) {
		return nil
	}

	return &Notification{
		UserID:      *poll.CreatedBy,
		Kind:        NotificationVote,
		Title:       "새로운 투표 참여",
		Description: fmt.Sprintf("\"%s\" 투표에 누군가 참여했습니다", poll.Title),
		RelatedID:   poll.ID,
		CreatedAt:   NowFunc(),
	}
}

// NewCommentNotification tells the creator of poll that author commented on it. It returns nil
// when nobody is to be notified.
func NewCommentNotification(poll *Poll, author *User) *Notification {
	if poll.CreatedBy == nil || (author != nil && poll.IsOwnedBy(author.ID)) {
		return nil
	}

	return &Notification{
		UserID:      *poll.CreatedBy,
		Kind:        NotificationComment,
		Title:       "새로운 댓글",
		Description: fmt.Sprintf("%s님이 \"%s\" 투표에 댓글을 남겼습니다", displayName(author), poll.Title),
		RelatedID:   poll.ID,
		CreatedAt:   NowFunc(),
	}
}
