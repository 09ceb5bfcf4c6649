package thegoat

import (
	"time"
	"unicode/utf8"
)

// DeletedCommentContent replaces the content of soft deleted comments.
const DeletedCommentContent = "[삭제된 댓글입니다]"

const MaxCommentLength = 500

type Comment struct {
	ID        string     `db:"id" json:"id"`
	PollID    string     `db:"poll_id" json:"poll_id"`
	OptionID  *string    `db:"option_id" json:"option_id,omitempty"`
	UserID    string     `db:"user_id" json:"user_id"`
	Content   string     `db:"content" json:"content"`
	Likes     int64      `db:"likes" json:"likes"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`

	Author      string  `db:"author" json:"author"`
	OptionText  *string `db:"option_text" json:"option_text,omitempty"`
	OptionColor *string `db:"option_color" json:"option_color,omitempty"`
}

// CommentSeenByUser is a comment along with whether the viewing user liked it.
type CommentSeenByUser struct {
	Comment
	Liked bool `db:"liked" json:"liked"`
}

// UserComment is a comment listed on its author's page, with the poll it was posted on.
type UserComment struct {
	Comment
	PollTitle    string `db:"poll_title" json:"poll_title"`
	PollCategory string `db:"poll_category" json:"poll_category"`
}

func NewComment(pollID string, optionID *string, content string, userID string) *Comment {
	return &Comment{
		PollID:    pollID,
		OptionID:  optionID,
		UserID:    userID,
		Content:   content,
		CreatedAt: NowFunc(),
	}
}

func (c *Comment) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Excerpt returns the first n characters of the content, marking the cut with an ellipsis.
func (c *Comment) Excerpt(n int) string {
	if utf8.RuneCountInString(c.Content) <= n {
		return c.Content
	}
	return string([]rune(c.Content)[:n]) + "..."
}
