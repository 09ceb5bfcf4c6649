package integration

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/realtime"
)

func TestPolls(t *testing.T) {
	c := qt.New(t)

	c.Run("OK empty list", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		var page pollsPageResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodGet, "/api/polls", nil, &page)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(page.Polls, qt.HasLen, 0)
		c.Assert(page.HasMore, qt.IsFalse)
	})

	c.Run("OK create a poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, versusInput("짜장면 vs 짬뽕", "짜장면", "짬뽕"))

		c.Assert(poll.ID, qt.Not(qt.Equals), "")
		c.Assert(poll.PollType, qt.Equals, "versus")
		c.Assert(poll.Author, qt.Equals, "fakeLogin0")
		c.Assert(poll.Options, qt.HasLen, 2)
		c.Assert(poll.Options[0].Text, qt.Equals, "짜장면")
		c.Assert(poll.Options[0].Color, qt.Not(qt.Equals), poll.Options[1].Color)

		var shown pollResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodGet, "/api/polls/"+poll.ID, nil, &shown)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(shown.Title, qt.Equals, "짜장면 vs 짬뽕")
	})

	c.Run("NOK create a poll unauthenticated", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		var e errorResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls", versusInput("a vs b", "a", "b"), &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
		c.Assert(e.Code, qt.Equals, "unauthorized")
	})

	c.Run("NOK create an invalid poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		in := versusInput("", "a", "a")
		in.Category = "nope"

		var e errorResponse
		resp := tc.do(tc.newAuthenticatedClient(), http.MethodPost, "/api/polls", in, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)
		c.Assert(e.Fields, qt.DeepEquals, []string{"title", "category", "options.text"})
	})

	c.Run("NOK unknown poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		var e errorResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodGet, "/api/polls/00000000-0000-0000-0000-000000000000", nil, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
		c.Assert(e.Code, qt.Equals, "not_found")
	})

	// 5 polls, 3 per page
	c.Run("OK pagination", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		for _, title := range []string{"one", "two", "three", "four", "five"} {
			tc.createPoll(client, versusInput(title, "a", "b"))
		}

		var page pollsPageResponse
		tc.do(client, http.MethodGet, "/api/polls?sort=recent", nil, &page)
		c.Assert(page.Polls, qt.HasLen, 3)
		c.Assert(page.HasMore, qt.IsTrue)

		tc.do(client, http.MethodGet, "/api/polls?sort=recent&page=1", nil, &page)
		c.Assert(page.Polls, qt.HasLen, 2)
		c.Assert(page.Page, qt.Equals, 1)
		c.Assert(page.HasMore, qt.IsFalse)
	})

	c.Run("OK page far past the end", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		tc.createPoll(client, versusInput("one", "a", "b"))

		for _, page := range []string{"500000000000000000", "-3074457345618258603"} {
			var out pollsPageResponse
			resp := tc.do(client, http.MethodGet, "/api/polls?page="+page, nil, &out)
			c.Assert(resp.StatusCode, qt.Equals, http.StatusOK, qt.Commentf("page %s", page))
			c.Assert(out.HasMore, qt.IsFalse)
		}

		var out pollsPageResponse
		tc.do(client, http.MethodGet, "/api/polls?page=500000000000000000", nil, &out)
		c.Assert(out.Polls, qt.HasLen, 0)
		c.Assert(out.Page, qt.Equals, 10000)
	})

	c.Run("OK search", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		tc.createPoll(client, versusInput("치킨 vs 피자", "치킨", "피자"))
		tc.createPoll(client, versusInput("아이폰 vs 갤럭시", "아이폰", "갤럭시"))

		var page pollsPageResponse
		tc.do(client, http.MethodGet, "/api/search?q="+url.QueryEscape("피자"), nil, &page)
		c.Assert(page.Polls, qt.HasLen, 1)
		c.Assert(page.Polls[0].Title, qt.Equals, "치킨 vs 피자")

		tc.do(client, http.MethodGet, "/api/search?q=", nil, &page)
		c.Assert(page.Polls, qt.HasLen, 0)
	})

	c.Run("OK edit a poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, &thegoat.PollInput{
			Title:    "최고의 e스포츠 종목은?",
			PollType: thegoat.PollTypeMultiple,
			Category: "game",
			Options:  []thegoat.OptionInput{{Text: "롤"}, {Text: "발로란트"}, {Text: "배그"}},
		})

		in := &thegoat.PollInput{
			Title:    "최고의 e스포츠 종목은??",
			Category: "game",
			Options: []thegoat.OptionInput{
				{ID: poll.Options[0].ID, Text: "리그 오브 레전드"},
				{ID: poll.Options[2].ID, Text: "배그"},
				{Text: "스타크래프트"},
			},
		}

		var edited pollResponse
		resp := tc.do(client, http.MethodPut, "/api/polls/"+poll.ID, in, &edited)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(edited.Title, qt.Equals, "최고의 e스포츠 종목은??")
		c.Assert(edited.Options, qt.HasLen, 3)
		c.Assert(edited.Options[0].ID, qt.Equals, poll.Options[0].ID)
		c.Assert(edited.Options[0].Text, qt.Equals, "리그 오브 레전드")
		c.Assert(edited.Options[2].Text, qt.Equals, "스타크래프트")

		// somebody else
		var e errorResponse
		resp = tc.do(tc.newAuthenticatedClient(), http.MethodPut, "/api/polls/"+poll.ID, in, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)
		c.Assert(e.Code, qt.Equals, "forbidden")
	})

	c.Run("OK delete a poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, versusInput("a vs b", "a", "b"))

		resp := tc.do(tc.newAuthenticatedClient(), http.MethodDelete, "/api/polls/"+poll.ID, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)

		resp = tc.do(client, http.MethodDelete, "/api/polls/"+poll.ID, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)

		resp = tc.do(client, http.MethodGet, "/api/polls/"+poll.ID, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	})

	c.Run("OK user options", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), &thegoat.PollInput{
			Title:    "2025년 MZ세대 필수 아이템은?",
			PollType: thegoat.PollTypeMultiple,
			Category: "life",
			Options:  []thegoat.OptionInput{{Text: "에어팟 프로"}, {Text: "스탠리 텀블러"}, {Text: "아이패드"}},
		})

		client := tc.newAuthenticatedClient()
		var opt optionResponse
		resp := tc.do(client, http.MethodPost, "/api/polls/"+poll.ID+"/options", map[string]string{"text": "닌텐도 스위치"}, &opt)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
		c.Assert(opt.Text, qt.Equals, "닌텐도 스위치")

		var e errorResponse
		resp = tc.do(client, http.MethodPost, "/api/polls/"+poll.ID+"/options", map[string]string{"text": "아이패드"}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
		c.Assert(e.Code, qt.Equals, "duplicate")

		resp = tc.do(tc.newAuthenticatedClient(), http.MethodDelete, "/api/polls/"+poll.ID+"/options/"+opt.ID, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)

		resp = tc.do(client, http.MethodDelete, "/api/polls/"+poll.ID+"/options/"+opt.ID, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
	})

	c.Run("OK upload an option image", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, versusInput("a vs b", "a", "b"))

		png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
		path := "/api/polls/" + poll.ID + "/options/" + poll.Options[0].ID + "/image"
		resp := tc.uploadImage(client, path, "a.png", "application/octet-stream", []byte(png))
		defer resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

		var uploaded map[string]string
		c.Assert(json.NewDecoder(resp.Body).Decode(&uploaded), qt.IsNil)
		c.Assert(strings.HasPrefix(uploaded["url"], "https://images.test/poll-options/"+poll.ID+"/"), qt.IsTrue)

		key := strings.TrimPrefix(uploaded["url"], "https://images.test/")
		b, ok := tc.images.Object(key)
		c.Assert(ok, qt.IsTrue)
		c.Assert(string(b), qt.Equals, png)

		var shown pollResponse
		tc.do(client, http.MethodGet, "/api/polls/"+poll.ID, nil, &shown)
		c.Assert(shown.Options[0].Image, qt.Equals, uploaded["url"])
	})

	c.Run("NOK upload a text file labelled as an image", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, versusInput("a vs b", "a", "b"))

		path := "/api/polls/" + poll.ID + "/options/" + poll.Options[0].ID + "/image"
		resp := tc.uploadImage(client, path, "a.png", "image/png", []byte("<svg onload=alert(1)></svg>"))
		defer resp.Body.Close()
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)

		var shown pollResponse
		tc.do(client, http.MethodGet, "/api/polls/"+poll.ID, nil, &shown)
		c.Assert(shown.Options[0].Image, qt.Equals, "")
	})
}

func TestVotes(t *testing.T) {
	c := qt.New(t)

	c.Run("OK vote anonymously then signed in", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("치킨 vs 피자", "치킨", "피자"))
		anonymous := tc.newHTTPClient()

		var status struct {
			Voted    bool   `json:"voted"`
			OptionID string `json:"option_id"`
		}
		tc.do(anonymous, http.MethodGet, "/api/polls/"+poll.ID+"/vote", nil, &status)
		c.Assert(status.Voted, qt.IsFalse)

		var voted struct {
			Poll     pollResponse `json:"poll"`
			OptionID string       `json:"option_id"`
		}
		resp := tc.do(anonymous, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[1].ID}, &voted)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(voted.Poll.TotalVotes, qt.Equals, int64(1))
		c.Assert(voted.Poll.Options[1].Percentage, qt.Equals, 100)
		c.Assert(voted.Poll.LeadingOptionID, qt.Equals, poll.Options[1].ID)

		tc.do(anonymous, http.MethodGet, "/api/polls/"+poll.ID+"/vote", nil, &status)
		c.Assert(status.Voted, qt.IsTrue)
		c.Assert(status.OptionID, qt.Equals, poll.Options[1].ID)

		// same address
		var e errorResponse
		resp = tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
		c.Assert(e.Code, qt.Equals, "already_voted")

		// signed in users vote on their own
		client := tc.newAuthenticatedClient()
		resp = tc.do(client, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, &voted)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(voted.Poll.TotalVotes, qt.Equals, int64(2))
		c.Assert(voted.Poll.Options[0].Percentage, qt.Equals, 50)

		resp = tc.do(client, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)

		var polls []*pollResponse
		tc.do(client, http.MethodGet, "/api/me/votes", nil, &polls)
		c.Assert(polls, qt.HasLen, 1)
		c.Assert(polls[0].ID, qt.Equals, poll.ID)
	})

	c.Run("OK stalled live clients don't slow votes down", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))

		// subscriptions nobody reads, their buffers filled up
		for i := 0; i < 3; i++ {
			sub := tc.hub.Subscribe(realtime.PollTopic(poll.ID))
			c.Cleanup(sub.Close)
			for len(sub.C) < cap(sub.C) {
				c.Assert(tc.hub.Publish(context.Background(), realtime.Event{Topic: realtime.PollTopic(poll.ID)}), qt.IsNil)
			}
		}

		start := time.Now()
		resp := tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(time.Since(start) < 500*time.Millisecond, qt.IsTrue)
	})

	c.Run("NOK unknown option", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))

		var e errorResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": "nope"}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)
		c.Assert(e.Fields, qt.DeepEquals, []string{"option_id"})
	})

	c.Run("NOK closed poll", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		in := versusInput("a vs b", "a", "b")
		endsAt := time.Now().Add(time.Hour)
		in.EndsAt = &endsAt
		poll := tc.createPoll(tc.newAuthenticatedClient(), in)

		thegoat.NowFunc = func() time.Time { return endsAt.Add(time.Minute) }
		c.Cleanup(func() { thegoat.NowFunc = time.Now })

		var e errorResponse
		resp := tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
		c.Assert(e.Code, qt.Equals, "poll_closed")

		var shown pollResponse
		tc.do(tc.newHTTPClient(), http.MethodGet, "/api/polls/"+poll.ID, nil, &shown)
		c.Assert(shown.Closed, qt.IsTrue)
	})

	c.Run("OK stats", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))
		tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, nil)

		var stats struct {
			Hourly []struct {
				Votes int `json:"votes"`
			} `json:"hourly"`
			Options []struct {
				OptionID   string `json:"option_id"`
				Percentage int    `json:"percentage"`
			} `json:"options"`
			RecentVotes []struct {
				OptionText string `json:"option_text"`
			} `json:"recent_votes"`
		}
		resp := tc.do(tc.newHTTPClient(), http.MethodGet, "/api/polls/"+poll.ID+"/stats", nil, &stats)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(stats.Hourly, qt.HasLen, 1)
		c.Assert(stats.Hourly[0].Votes, qt.Equals, 1)
		c.Assert(stats.Options[0].Percentage, qt.Equals, 100)
		c.Assert(stats.RecentVotes, qt.HasLen, 1)
		c.Assert(stats.RecentVotes[0].OptionText, qt.Equals, "a")
	})

	c.Run("OK counters", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))

		var views map[string]int64
		tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/views", nil, &views)
		tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/views", nil, &views)
		c.Assert(views["view_count"], qt.Equals, int64(2))
	})
}

func TestComments(t *testing.T) {
	c := qt.New(t)

	type commentResponse struct {
		ID         string  `json:"id"`
		Content    string  `json:"content"`
		Author     string  `json:"author"`
		Likes      int64   `json:"likes"`
		Liked      bool    `json:"liked"`
		OptionText *string `json:"option_text"`
		DeletedAt  *string `json:"deleted_at"`
	}

	c.Run("OK comment, like and delete", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		author := tc.newAuthenticatedClient()
		poll := tc.createPoll(author, versusInput("치킨 vs 피자", "치킨", "피자"))

		var comment commentResponse
		resp := tc.do(author, http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{
			"content":   "  치킨은 진리  ",
			"option_id": poll.Options[0].ID,
		}, &comment)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
		c.Assert(comment.Content, qt.Equals, "치킨은 진리")
		c.Assert(*comment.OptionText, qt.Equals, "치킨")

		fan := tc.newAuthenticatedClient()
		var like struct {
			Liked bool  `json:"liked"`
			Likes int64 `json:"likes"`
		}
		path := "/api/polls/" + poll.ID + "/comments/" + comment.ID
		resp = tc.do(fan, http.MethodPost, path+"/like", nil, &like)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(like.Liked, qt.IsTrue)
		c.Assert(like.Likes, qt.Equals, int64(1))

		var comments []*commentResponse
		tc.do(fan, http.MethodGet, "/api/polls/"+poll.ID+"/comments", nil, &comments)
		c.Assert(comments, qt.HasLen, 1)
		c.Assert(comments[0].Liked, qt.IsTrue)
		c.Assert(comments[0].Author, qt.Equals, "fakeLogin0")

		var notifications []struct {
			Type string `json:"type"`
		}
		tc.do(author, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications, qt.HasLen, 1)
		c.Assert(notifications[0].Type, qt.Equals, thegoat.NotificationLike)

		resp = tc.do(fan, http.MethodDelete, path, nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)

		// liked comments are blanked out
		var deleted map[string]bool
		resp = tc.do(author, http.MethodDelete, path, nil, &deleted)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(deleted["soft"], qt.IsTrue)

		tc.do(fan, http.MethodGet, "/api/polls/"+poll.ID+"/comments", nil, &comments)
		c.Assert(comments, qt.HasLen, 1)
		c.Assert(comments[0].DeletedAt, qt.IsNotNil)

		var e errorResponse
		resp = tc.do(fan, http.MethodPost, path+"/like", nil, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	})

	c.Run("NOK comment unauthenticated", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))

		resp := tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{"content": "hi"}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	})

	c.Run("NOK empty comment", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		client := tc.newAuthenticatedClient()
		poll := tc.createPoll(client, versusInput("a vs b", "a", "b"))

		var e errorResponse
		resp := tc.do(client, http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{"content": "   "}, &e)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)
		c.Assert(e.Fields, qt.DeepEquals, []string{"content"})
	})
}

func TestBookmarks(t *testing.T) {
	c := qt.New(t)

	tc := newTestContext(c)
	tc.prepareServer()

	client := tc.newAuthenticatedClient()
	a := tc.createPoll(client, versusInput("a vs b", "a", "b"))
	b := tc.createPoll(client, versusInput("c vs d", "c", "d"))

	var toggled map[string]bool
	resp := tc.do(client, http.MethodPost, "/api/polls/"+a.ID+"/bookmark", nil, &toggled)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(toggled["bookmarked"], qt.IsTrue)

	var statuses map[string]bool
	tc.do(client, http.MethodGet, "/api/me/bookmarks/status?ids="+a.ID+","+b.ID, nil, &statuses)
	c.Assert(statuses, qt.DeepEquals, map[string]bool{a.ID: true, b.ID: false})

	var polls []*pollResponse
	tc.do(client, http.MethodGet, "/api/me/bookmarks", nil, &polls)
	c.Assert(polls, qt.HasLen, 1)
	c.Assert(polls[0].ID, qt.Equals, a.ID)

	tc.do(client, http.MethodPost, "/api/polls/"+a.ID+"/bookmark", nil, &toggled)
	c.Assert(toggled["bookmarked"], qt.IsFalse)

	tc.do(client, http.MethodGet, "/api/me/bookmarks", nil, &polls)
	c.Assert(polls, qt.HasLen, 0)
}

func TestPasswordAuth(t *testing.T) {
	c := qt.New(t)

	tc := newTestContext(c)
	tc.prepareServer()

	creds := map[string]string{"email": "Haddock@Moulinsart.be", "password": "mille sabords"}

	client := tc.newHTTPClient()
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	resp := tc.do(client, http.MethodPost, "/auth/signup", creds, &user)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	c.Assert(user.Email, qt.Equals, "haddock@moulinsart.be")

	resp = tc.do(client, http.MethodGet, "/api/me", nil, &user)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	var e errorResponse
	resp = tc.do(tc.newHTTPClient(), http.MethodPost, "/auth/signup", creds, &e)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
	c.Assert(e.Code, qt.Equals, "email_taken")

	other := tc.newHTTPClient()
	resp = tc.do(other, http.MethodPost, "/auth/signin", map[string]string{"email": creds["email"], "password": "tonnerre de brest"}, &e)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	c.Assert(e.Code, qt.Equals, "invalid_credentials")

	resp = tc.do(other, http.MethodPost, "/auth/signin", creds, &user)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	tc.createPoll(other, versusInput("a vs b", "a", "b"))
	var polls []*pollResponse
	tc.do(other, http.MethodGet, "/api/me/polls", nil, &polls)
	c.Assert(polls, qt.HasLen, 1)
}

func TestLive(t *testing.T) {
	c := qt.New(t)

	tc := newTestContext(c)
	tc.prepareServer()

	poll := tc.createPoll(tc.newAuthenticatedClient(), versusInput("a vs b", "a", "b"))

	wsURL := "ws" + strings.TrimPrefix(tc.url("/api/polls/"+poll.ID+"/live"), "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	defer conn.Close()

	type liveMessage struct {
		Type string        `json:"type"`
		Poll *pollResponse `json:"poll"`
	}

	read := func() *liveMessage {
		c.Assert(conn.SetReadDeadline(time.Now().Add(5*time.Second)), qt.IsNil)
		var msg liveMessage
		c.Assert(conn.ReadJSON(&msg), qt.IsNil)
		return &msg
	}

	msg := read()
	c.Assert(msg.Type, qt.Equals, "poll")
	c.Assert(msg.Poll.TotalVotes, qt.Equals, int64(0))

	tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, nil)

	msg = read()
	c.Assert(msg.Type, qt.Equals, "poll")
	c.Assert(msg.Poll.TotalVotes, qt.Equals, int64(1))
}

func TestNotifications(t *testing.T) {
	c := qt.New(t)

	type notificationResponse struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		RelatedID string `json:"related_id"`
		Read      bool   `json:"read"`
	}

	c.Run("OK votes and comments notify the creator", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		creator := tc.newAuthenticatedClient()
		poll := tc.createPoll(creator, versusInput("치킨 vs 피자", "치킨", "피자"))

		// voting on one's own poll doesn't notify
		resp := tc.do(creator, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[0].ID}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

		resp = tc.do(tc.newHTTPClient(), http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[1].ID}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

		fan := tc.newAuthenticatedClient()
		resp = tc.do(fan, http.MethodPost, "/api/polls/"+poll.ID+"/vote", map[string]string{"option_id": poll.Options[1].ID}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		resp = tc.do(fan, http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{"content": "피자지"}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
		resp = tc.do(creator, http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{"content": "치킨이지"}, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)

		var notifications []*notificationResponse
		tc.do(creator, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications, qt.HasLen, 3)
		c.Assert(notifications[0].Type, qt.Equals, thegoat.NotificationComment)
		c.Assert(notifications[1].Type, qt.Equals, thegoat.NotificationVote)
		c.Assert(notifications[2].Type, qt.Equals, thegoat.NotificationVote, qt.Commentf("anonymous votes notify too"))
		c.Assert(notifications[2].RelatedID, qt.Equals, poll.ID)
		c.Assert(notifications[2].Read, qt.IsFalse)

		tc.do(fan, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications, qt.HasLen, 0)
	})

	c.Run("OK read then clear", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		creator := tc.newAuthenticatedClient()
		fan := tc.newAuthenticatedClient()
		for _, title := range []string{"one", "two"} {
			poll := tc.createPoll(creator, versusInput(title, "a", "b"))
			resp := tc.do(fan, http.MethodPost, "/api/polls/"+poll.ID+"/comments", map[string]string{"content": "hello"}, nil)
			c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
		}

		var notifications []*notificationResponse
		tc.do(creator, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications, qt.HasLen, 2)
		first := notifications[0].ID

		resp := tc.do(fan, http.MethodPost, "/api/me/notifications/"+first+"/read", nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)

		resp = tc.do(creator, http.MethodPost, "/api/me/notifications/"+first+"/read", nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
		tc.do(creator, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications[0].Read, qt.IsTrue)
		c.Assert(notifications[1].Read, qt.IsFalse)

		resp = tc.do(creator, http.MethodPost, "/api/me/notifications/all/read", nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
		tc.do(creator, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications[1].Read, qt.IsTrue)

		resp = tc.do(creator, http.MethodDelete, "/api/me/notifications", nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
		tc.do(creator, http.MethodGet, "/api/me/notifications", nil, &notifications)
		c.Assert(notifications, qt.HasLen, 0)
	})

	c.Run("NOK unauthenticated", func(c *qt.C) {
		tc := newTestContext(c)
		tc.prepareServer()

		resp := tc.do(tc.newHTTPClient(), http.MethodDelete, "/api/me/notifications", nil, nil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	})
}
