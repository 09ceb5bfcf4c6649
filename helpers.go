package thegoat

import (
	"html/template"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

var NowFunc func() time.Time = time.Now

// TemplateFuncs are the helpers available to server rendered pages.
var TemplateFuncs template.FuncMap = template.FuncMap{
	"daysAgo": func(t time.Time) string {
		now := NowFunc()
		days := int(now.Sub(t).Hours() / 24)

		if days < 1 {
			return "오늘"
		}
		return strconv.Itoa(days) + "일 전"
	},
	"comma":    humanize.Comma,
	"markdown": RenderDescription,
	"percentage": func(o *PollOption, p *Poll) int {
		return Percentage(o.VoteCount, p.TotalVotes, len(p.Options))
	},
}
