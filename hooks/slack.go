package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/thegoat123/thegoat"
)

var typeLabels = map[thegoat.PollType]string{
	thegoat.PollTypeVersus:   "VS",
	thegoat.PollTypeMultiple: "다지선다",
}

// SlackMessage builds the message announcing a new poll.
func SlackMessage(poll *thegoat.Poll, siteURL string) *slack.WebhookMessage {
	options := make([]string, len(poll.Options))
	for i, o := range poll.Options {
		options[i] = o.Text
	}

	sep := ", "
	if poll.PollType == thegoat.PollTypeVersus {
		sep = " vs "
	}

	url := strings.TrimRight(siteURL, "/") + "/poll/" + poll.ID
	author := poll.Author
	if author == "" {
		author = "익명"
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("새 투표: %s", poll.Title),
		Attachments: []slack.Attachment{
			{
				Title:     poll.Title,
				TitleLink: url,
				Text:      strings.Join(options, sep),
				Footer:    fmt.Sprintf("%s · %s · %s", typeLabels[poll.PollType], poll.Category, author),
				Ts:        json.Number(strconv.FormatInt(poll.CreatedAt.Unix(), 10)),
			},
		},
	}
}

// NewSlackPollHook returns a hook posting new polls on a Slack incoming webhook.
func NewSlackPollHook(webhookURL string, siteURL string) thegoat.PollHook {
	client := &http.Client{Timeout: 5 * time.Second}

	return func(poll *thegoat.Poll) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return slack.PostWebhookCustomHTTPContext(ctx, webhookURL, client, SlackMessage(poll, siteURL))
	}
}
