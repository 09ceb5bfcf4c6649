package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/authentication"
	"github.com/thegoat123/thegoat/ranking"
)

// A MemStore keeps everything in memory, enforcing the same constraints as the database:
// one vote per poll and voter, one like per comment and user, one bookmark per poll and user.
type MemStore struct {
	mtx sync.RWMutex

	users        map[string]*thegoat.User
	usersByLogin map[string]string
	polls        map[string]*thegoat.Poll
	options      map[string]*thegoat.PollOption
	votes        []*thegoat.Vote
	voterKeys    map[string]map[string]*thegoat.Vote
	comments     map[string]*thegoat.Comment
	likes        map[string]map[string]bool
	bookmarks    map[string]map[string]time.Time
	notifs       []*thegoat.Notification
}

func New() *MemStore {
	return &MemStore{
		users:        map[string]*thegoat.User{},
		usersByLogin: map[string]string{},
		polls:        map[string]*thegoat.Poll{},
		options:      map[string]*thegoat.PollOption{},
		voterKeys:    map[string]map[string]*thegoat.Vote{},
		comments:     map[string]*thegoat.Comment{},
		likes:        map[string]map[string]bool{},
		bookmarks:    map[string]map[string]time.Time{},
	}
}

func (s *MemStore) Connect() error {
	return nil
}

func newID() string {
	return uuid.NewString()
}

// pollCopy returns a copy of the poll with its options in display order and its author name.
// Callers must hold the lock.
func (s *MemStore) pollCopy(p *thegoat.Poll) *thegoat.Poll {
	cp := *p
	cp.Options = []*thegoat.PollOption{}
	for _, o := range s.options {
		if o.PollID == p.ID {
			oc := *o
			cp.Options = append(cp.Options, &oc)
		}
	}
	thegoat.SortOptions(cp.Options)

	if p.CreatedBy != nil {
		if u, ok := s.users[*p.CreatedBy]; ok {
			cp.Author = u.Name
		}
	}

	return &cp
}

func (s *MemStore) userName(id string) string {
	if u, ok := s.users[id]; ok {
		return u.Name
	}
	return ""
}

func sortPolls(polls []*thegoat.Poll, by thegoat.PollSort) {
	switch by {
	case thegoat.SortHot:
		sortPolls(polls, thegoat.SortRecent)
		ranking.Sort(polls, thegoat.NowFunc())
	case thegoat.SortRecent:
		sort.SliceStable(polls, func(i, j int) bool {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		})
	case thegoat.SortViews:
		sort.SliceStable(polls, func(i, j int) bool {
			if polls[i].ViewCount != polls[j].ViewCount {
				return polls[i].ViewCount > polls[j].ViewCount
			}
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		})
	default:
		sort.SliceStable(polls, func(i, j int) bool {
			if polls[i].TotalVotes != polls[j].TotalVotes {
				return polls[i].TotalVotes > polls[j].TotalVotes
			}
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		})
	}
}

func paginate(polls []*thegoat.Poll, offset int, limit int) []*thegoat.Poll {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(polls) {
		return []*thegoat.Poll{}
	}
	polls = polls[offset:]
	if limit > 0 && len(polls) > limit {
		polls = polls[:limit]
	}
	return polls
}

func (s *MemStore) ListPolls(ctx context.Context, filter *thegoat.PollFilter) ([]*thegoat.Poll, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	polls := []*thegoat.Poll{}
	for _, p := range s.polls {
		if filter.Matches(p) {
			polls = append(polls, s.pollCopy(p))
		}
	}

	sortPolls(polls, filter.Sort)
	return paginate(polls, filter.Offset, filter.Limit), nil
}

func (s *MemStore) FindPoll(ctx context.Context, id string) (*thegoat.Poll, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	p, ok := s.polls[id]
	if !ok {
		return nil, thegoat.ErrPollNotFound
	}
	return s.pollCopy(p), nil
}

func (s *MemStore) InsertPoll(ctx context.Context, poll *thegoat.Poll) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if poll.CreatedBy != nil {
		if _, ok := s.users[*poll.CreatedBy]; !ok {
			return thegoat.ErrReferenceMissing
		}
	}

	poll.ID = newID()
	stored := *poll
	stored.Options = nil
	s.polls[poll.ID] = &stored

	for _, o := range poll.Options {
		o.ID = newID()
		o.PollID = poll.ID
		oc := *o
		s.options[o.ID] = &oc
	}

	return nil
}

func (s *MemStore) UpdatePoll(ctx context.Context, poll *thegoat.Poll, edit *thegoat.OptionsEdit) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored, ok := s.polls[poll.ID]
	if !ok {
		return thegoat.ErrPollNotFound
	}

	// check everything before writing anything, the edit applies as a whole or not at all
	for _, id := range edit.Delete {
		o, ok := s.options[id]
		if !ok || o.PollID != poll.ID {
			return thegoat.ErrOptionNotFound
		}
		if o.VoteCount > 0 {
			return thegoat.ErrOptionHasVotes
		}
	}
	for _, u := range edit.Update {
		if o, ok := s.options[u.ID]; !ok || o.PollID != poll.ID {
			return thegoat.ErrOptionNotFound
		}
	}

	stored.Title = poll.Title
	stored.Description = poll.Description
	stored.Category = poll.Category
	stored.EndsAt = poll.EndsAt
	stored.UpdatedAt = poll.UpdatedAt

	for _, id := range edit.Delete {
		delete(s.options, id)
	}
	for _, u := range edit.Update {
		o := s.options[u.ID]
		o.Text = u.Text
		o.Color = u.Color
		o.Image = u.Image
		o.DisplayOrder = u.DisplayOrder
	}
	for _, o := range edit.Insert {
		o.ID = newID()
		o.PollID = poll.ID
		oc := *o
		s.options[o.ID] = &oc
	}

	return nil
}

func (s *MemStore) DeletePoll(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.polls[id]; !ok {
		return thegoat.ErrPollNotFound
	}
	delete(s.polls, id)

	for oid, o := range s.options {
		if o.PollID == id {
			delete(s.options, oid)
		}
	}

	votes := s.votes[:0]
	for _, v := range s.votes {
		if v.PollID != id {
			votes = append(votes, v)
		}
	}
	s.votes = votes
	delete(s.voterKeys, id)

	for cid, c := range s.comments {
		if c.PollID == id {
			delete(s.comments, cid)
			delete(s.likes, cid)
		}
	}
	for _, marks := range s.bookmarks {
		delete(marks, id)
	}

	return nil
}

func (s *MemStore) IncrementPollCounter(ctx context.Context, id string, counter thegoat.Counter) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.polls[id]
	if !ok {
		return 0, thegoat.ErrPollNotFound
	}

	switch counter {
	case thegoat.CounterViews:
		p.ViewCount++
		return p.ViewCount, nil
	case thegoat.CounterShares:
		p.ShareCount++
		return p.ShareCount, nil
	}
	return 0, thegoat.BadRequest(fmt.Errorf("unknown counter %q", counter))
}

func (s *MemStore) InsertOption(ctx context.Context, option *thegoat.PollOption) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.polls[option.PollID]; !ok {
		return thegoat.ErrReferenceMissing
	}
	for _, o := range s.options {
		if o.PollID == option.PollID && strings.EqualFold(o.Text, option.Text) {
			return thegoat.ErrDuplicate
		}
	}

	option.ID = newID()
	oc := *option
	s.options[option.ID] = &oc
	return nil
}

func (s *MemStore) DeleteOption(ctx context.Context, pollID string, optionID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	o, ok := s.options[optionID]
	if !ok || o.PollID != pollID {
		return thegoat.ErrOptionNotFound
	}
	if o.VoteCount > 0 {
		return thegoat.ErrOptionHasVotes
	}
	delete(s.options, optionID)
	return nil
}

func (s *MemStore) UpdateOptionImage(ctx context.Context, optionID string, url string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	o, ok := s.options[optionID]
	if !ok {
		return thegoat.ErrOptionNotFound
	}
	o.Image = &url
	return nil
}

func (s *MemStore) InsertVote(ctx context.Context, vote *thegoat.Vote) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.polls[vote.PollID]
	if !ok {
		return thegoat.ErrPollNotFound
	}
	o, ok := s.options[vote.OptionID]
	if !ok || o.PollID != vote.PollID {
		return thegoat.ErrUnknownOption
	}

	keys, ok := s.voterKeys[vote.PollID]
	if !ok {
		keys = map[string]*thegoat.Vote{}
		s.voterKeys[vote.PollID] = keys
	}
	if _, ok := keys[vote.VoterKey]; ok {
		return thegoat.ErrAlreadyVoted
	}

	vote.ID = newID()
	v := *vote
	keys[vote.VoterKey] = &v
	s.votes = append(s.votes, &v)

	o.VoteCount++
	p.TotalVotes++

	return nil
}

func (s *MemStore) FindVote(ctx context.Context, pollID string, voterKey string) (*thegoat.Vote, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	v, ok := s.voterKeys[pollID][voterKey]
	if !ok {
		return nil, nil
	}
	vc := *v
	return &vc, nil
}

func (s *MemStore) ListVotes(ctx context.Context, pollID string) ([]*thegoat.Vote, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	votes := []*thegoat.Vote{}
	for _, v := range s.votes {
		if v.PollID == pollID {
			vc := *v
			votes = append(votes, &vc)
		}
	}
	return votes, nil
}

func (s *MemStore) ListRecentVotes(ctx context.Context, pollID string, limit int) ([]*thegoat.RecentVote, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	recent := []*thegoat.RecentVote{}
	for i := len(s.votes) - 1; i >= 0 && len(recent) < limit; i-- {
		v := s.votes[i]
		if v.PollID != pollID {
			continue
		}

		rv := &thegoat.RecentVote{Vote: *v}
		if o, ok := s.options[v.OptionID]; ok {
			rv.OptionText = o.Text
			rv.OptionColor = o.Color
		}
		if v.UserID != nil {
			if name := s.userName(*v.UserID); name != "" {
				rv.UserName = &name
			}
		}
		recent = append(recent, rv)
	}
	return recent, nil
}

func (s *MemStore) ListPollsVotedBy(ctx context.Context, userID string) ([]*thegoat.Poll, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	polls := []*thegoat.Poll{}
	for i := len(s.votes) - 1; i >= 0; i-- {
		v := s.votes[i]
		if v.UserID == nil || *v.UserID != userID {
			continue
		}
		if p, ok := s.polls[v.PollID]; ok {
			polls = append(polls, s.pollCopy(p))
		}
	}
	return polls, nil
}

// commentCopy returns a copy of the comment with its author and option. Callers must hold the lock.
func (s *MemStore) commentCopy(c *thegoat.Comment) thegoat.Comment {
	cc := *c
	cc.Author = s.userName(c.UserID)
	if c.OptionID != nil {
		if o, ok := s.options[*c.OptionID]; ok {
			text, color := o.Text, o.Color
			cc.OptionText = &text
			cc.OptionColor = &color
		}
	}
	return cc
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func (s *MemStore) ListComments(ctx context.Context, pollID string, viewerID string) ([]*thegoat.CommentSeenByUser, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	comments := []*thegoat.CommentSeenByUser{}
	for _, c := range s.comments {
		if c.PollID != pollID {
			continue
		}
		comments = append(comments, &thegoat.CommentSeenByUser{
			Comment: s.commentCopy(c),
			Liked:   viewerID != "" && s.likes[c.ID][viewerID],
		})
	}

	newestFirst(comments, func(c *thegoat.CommentSeenByUser) time.Time { return c.CreatedAt })
	return comments, nil
}

func (s *MemStore) ListUserComments(ctx context.Context, userID string) ([]*thegoat.UserComment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	comments := []*thegoat.UserComment{}
	for _, c := range s.comments {
		if c.UserID != userID || c.IsDeleted() {
			continue
		}
		uc := &thegoat.UserComment{Comment: s.commentCopy(c)}
		if p, ok := s.polls[c.PollID]; ok {
			uc.PollTitle = p.Title
			uc.PollCategory = p.Category
		}
		comments = append(comments, uc)
	}

	newestFirst(comments, func(c *thegoat.UserComment) time.Time { return c.CreatedAt })
	return comments, nil
}

func (s *MemStore) FindComment(ctx context.Context, id string) (*thegoat.Comment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, thegoat.ErrCommentNotFound
	}
	cc := s.commentCopy(c)
	return &cc, nil
}

func (s *MemStore) InsertComment(ctx context.Context, comment *thegoat.Comment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, ok := s.polls[comment.PollID]
	if !ok {
		return thegoat.ErrReferenceMissing
	}
	if comment.OptionID != nil {
		if o, ok := s.options[*comment.OptionID]; !ok || o.PollID != comment.PollID {
			return thegoat.ErrUnknownOption
		}
	}

	comment.ID = newID()
	cc := *comment
	s.comments[comment.ID] = &cc
	p.CommentCount++

	return nil
}

func (s *MemStore) DeleteComment(ctx context.Context, id string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return false, thegoat.ErrCommentNotFound
	}

	if c.Likes > 0 {
		now := thegoat.NowFunc()
		c.Content = thegoat.DeletedCommentContent
		c.DeletedAt = &now
		return true, nil
	}

	delete(s.comments, id)
	delete(s.likes, id)
	if p, ok := s.polls[c.PollID]; ok && p.CommentCount > 0 {
		p.CommentCount--
	}
	return false, nil
}

func (s *MemStore) ToggleCommentLike(ctx context.Context, commentID string, userID string) (bool, int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return false, 0, thegoat.ErrCommentNotFound
	}

	likes, ok := s.likes[commentID]
	if !ok {
		likes = map[string]bool{}
		s.likes[commentID] = likes
	}

	if likes[userID] {
		delete(likes, userID)
		c.Likes--
		return false, c.Likes, nil
	}

	likes[userID] = true
	c.Likes++
	return true, c.Likes, nil
}

func (s *MemStore) ToggleBookmark(ctx context.Context, userID string, pollID string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.polls[pollID]; !ok {
		return false, thegoat.ErrReferenceMissing
	}

	marks, ok := s.bookmarks[userID]
	if !ok {
		marks = map[string]time.Time{}
		s.bookmarks[userID] = marks
	}

	if _, ok := marks[pollID]; ok {
		delete(marks, pollID)
		return false, nil
	}
	marks[pollID] = thegoat.NowFunc()
	return true, nil
}

func (s *MemStore) ListBookmarkedPolls(ctx context.Context, userID string) ([]*thegoat.Poll, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	type marked struct {
		poll *thegoat.Poll
		at   time.Time
	}
	all := []marked{}
	for pollID, at := range s.bookmarks[userID] {
		if p, ok := s.polls[pollID]; ok {
			all = append(all, marked{poll: s.pollCopy(p), at: at})
		}
	}
	newestFirst(all, func(m marked) time.Time { return m.at })

	polls := make([]*thegoat.Poll, len(all))
	for i, m := range all {
		polls[i] = m.poll
	}
	return polls, nil
}

func (s *MemStore) BookmarkStatuses(ctx context.Context, userID string, pollIDs []string) (map[string]bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	statuses := make(map[string]bool, len(pollIDs))
	for _, id := range pollIDs {
		_, statuses[id] = s.bookmarks[userID][id]
	}
	return statuses, nil
}

func (s *MemStore) InsertNotification(ctx context.Context, n *thegoat.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n.ID = newID()
	nc := *n
	s.notifs = append(s.notifs, &nc)
	return nil
}

func (s *MemStore) ListNotifications(ctx context.Context, userID string) ([]*thegoat.Notification, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	notifs := []*thegoat.Notification{}
	for i := len(s.notifs) - 1; i >= 0; i-- {
		if n := s.notifs[i]; n.UserID == userID {
			nc := *n
			notifs = append(notifs, &nc)
		}
	}
	return notifs, nil
}

func (s *MemStore) MarkNotificationRead(ctx context.Context, userID string, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, n := range s.notifs {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return thegoat.ErrNotificationNotFound
}

func (s *MemStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, n := range s.notifs {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (s *MemStore) ClearNotifications(ctx context.Context, userID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	kept := s.notifs[:0]
	for _, n := range s.notifs {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	for i := len(kept); i < len(s.notifs); i++ {
		s.notifs[i] = nil
	}
	s.notifs = kept
	return nil
}

func (s *MemStore) FindUserByLogin(ctx context.Context, login string) (*thegoat.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.usersByLogin[login]
	if !ok {
		return nil, nil
	}
	u := *s.users[id]
	return &u, nil
}

func (s *MemStore) FindUser(ctx context.Context, id string) (*thegoat.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	uc := *u
	return &uc, nil
}

func (s *MemStore) CreateOrUpdateUser(ctx context.Context, login string, email string) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := thegoat.NowFunc()
	if id, ok := s.usersByLogin[login]; ok {
		s.users[id].LastLoginAt = now
		return id, nil
	}

	u := &thegoat.User{
		ID:          newID(),
		Name:        login,
		Email:       email,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	s.users[u.ID] = u
	s.usersByLogin[login] = u.ID
	return u.ID, nil
}

func (s *MemStore) FindCredentials(ctx context.Context, login string) (*authentication.Credentials, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.usersByLogin[login]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	creds := &authentication.Credentials{Login: u.Name, Email: u.Email}
	if u.PasswordHash != nil {
		creds.PasswordHash = *u.PasswordHash
	}
	return creds, nil
}

func (s *MemStore) InsertCredentials(ctx context.Context, c *authentication.Credentials) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.usersByLogin[c.Login]; ok {
		return thegoat.ErrDuplicate
	}

	now := thegoat.NowFunc()
	hash := c.PasswordHash
	u := &thegoat.User{
		ID:           newID(),
		Name:         c.Login,
		Email:        c.Email,
		PasswordHash: &hash,
		CreatedAt:    now,
		LastLoginAt:  now,
	}
	s.users[u.ID] = u
	s.usersByLogin[c.Login] = u.ID
	return nil
}

var _ thegoat.Store = (*MemStore)(nil)
