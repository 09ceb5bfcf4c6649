package preview

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/thegoat123/thegoat"
)

const (
	siteName           = "THEGOAT123"
	defaultTitle       = "THEGOAT123 - 근본 투표 배틀"
	defaultDescription = "MZ세대를 위한 실시간 투표 플랫폼"
	defaultCategory    = "핫"
)

// Contender is one of the two options shown in link previews.
type Contender struct {
	Text       string `json:"text"`
	Votes      int64  `json:"votes"`
	Percentage int    `json:"percentage"`
}

// Meta is what link previews of a poll display.
type Meta struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Image       string       `json:"image"`
	Category    string       `json:"category"`
	Contenders  [2]Contender `json:"contenders"`
}

// contenders picks the two options a preview opposes: both options of a versus poll, the two
// with the most votes otherwise.
func contenders(poll *thegoat.Poll) [2]Contender {
	options := make([]*thegoat.PollOption, len(poll.Options))
	copy(options, poll.Options)
	thegoat.SortOptions(options)
	if poll.PollType != thegoat.PollTypeVersus {
		sort.SliceStable(options, func(i, j int) bool {
			return options[i].VoteCount > options[j].VoteCount
		})
	}

	res := [2]Contender{{Text: "??"}, {Text: "??"}}
	for i := 0; i < 2 && i < len(options); i++ {
		res[i] = Contender{
			Text:       options[i].Text,
			Votes:      options[i].VoteCount,
			Percentage: thegoat.Percentage(options[i].VoteCount, poll.TotalVotes, len(poll.Options)),
		}
	}

	return res
}

// BuildMeta computes the preview of a poll hosted on siteURL.
func BuildMeta(poll *thegoat.Poll, siteURL string) *Meta {
	c := contenders(poll)

	title := poll.Title
	if title == "" {
		title = c[0].Text + " vs " + c[1].Text
	}

	category := poll.Category
	if category == "" {
		category = defaultCategory
	}

	siteURL = strings.TrimSuffix(siteURL, "/")
	return &Meta{
		Title:       fmt.Sprintf("🔥 %s - %s", title, siteName),
		Description: fmt.Sprintf("%s %d%% vs %s %d%% | %s 투표 배틀", c[0].Text, c[0].Percentage, c[1].Text, c[1].Percentage, category),
		URL:         siteURL + "/poll/" + poll.ID,
		Image:       siteURL + "/og-image.png",
		Category:    poll.Category,
		Contenders:  c,
	}
}

type metaTag struct {
	attr    string
	key     string
	content func(*Meta) string
}

var metaTags = []metaTag{
	{"name", "description", func(m *Meta) string { return m.Description }},
	{"property", "og:title", func(m *Meta) string { return m.Title }},
	{"property", "og:description", func(m *Meta) string { return m.Description }},
	{"property", "og:url", func(m *Meta) string { return m.URL }},
	{"property", "og:image", func(m *Meta) string { return m.Image }},
	{"property", "kakao:title", func(m *Meta) string { return m.Title }},
	{"property", "kakao:description", func(m *Meta) string { return m.Description }},
	{"name", "twitter:title", func(m *Meta) string { return m.Title }},
	{"name", "twitter:description", func(m *Meta) string { return m.Description }},
}

// Rewrite replaces the title, description and social meta tags of an HTML page with meta. Tags
// missing from the page are added to its head.
func Rewrite(page []byte, meta *Meta) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	head := doc.Find("head")
	if doc.Find("head title").Length() == 0 {
		head.AppendHtml("<title></title>")
	}
	doc.Find("head title").SetText(meta.Title)

	for _, t := range metaTags {
		selector := fmt.Sprintf(`meta[%s="%s"]`, t.attr, t.key)
		if doc.Find(selector).Length() == 0 {
			head.AppendHtml(fmt.Sprintf(`<meta %s="%s"/>`, t.attr, t.key))
		}
		doc.Find(selector).SetAttr("content", t.content(meta))
	}

	html, err := doc.Html()
	if err != nil {
		return nil, err
	}

	return []byte(html), nil
}

var socialCrawlers = []string{
	"facebookexternalhit",
	"Kakaotalk-scrap",
	"kakaotalk-scrap",
	"KHTML, like Gecko) Version/",
}

var crawlerRegexp = regexp.MustCompile(`(?i)bot|crawler|spider|crawling|twitter|telegram|discord|slack|linkedin|whatsapp`)

// in-app browsers of messaging apps must get the real page
var browsers = []string{
	"Chrome/",
	"Safari/",
	"Firefox/",
	"KAKAOTALK",
}

// IsBot tells if a user agent belongs to a crawler that won't run the client application.
func IsBot(userAgent string) bool {
	for _, b := range browsers {
		if strings.Contains(userAgent, b) {
			return false
		}
	}

	for _, c := range socialCrawlers {
		if strings.Contains(userAgent, c) {
			return true
		}
	}

	return crawlerRegexp.MatchString(userAgent)
}
