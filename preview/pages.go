package preview

import (
	"html/template"

	"github.com/thegoat123/thegoat"
)

var pageTemplate = template.Must(template.New("page").Funcs(thegoat.TemplateFuncs).Parse(`<!doctype html>
<html lang="ko">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0, maximum-scale=5.0" />
    <meta name="theme-color" content="#8B5CF6" />
    <meta name="description" content="{{.Meta.Description}}" />
    <meta property="og:type" content="website" />
    <meta property="og:title" content="{{.Meta.Title}}" />
    <meta property="og:description" content="{{.Meta.Description}}" />
    <meta property="og:image" content="{{.Meta.Image}}" />
    <meta property="og:image:width" content="1200" />
    <meta property="og:image:height" content="630" />
    <meta property="og:url" content="{{.Meta.URL}}" />
    <meta property="kakao:title" content="{{.Meta.Title}}" />
    <meta property="kakao:description" content="{{.Meta.Description}}" />
    <meta property="kakao:image" content="{{.Meta.Image}}" />
    <meta name="twitter:card" content="summary_large_image" />
    <meta name="twitter:title" content="{{.Meta.Title}}" />
    <meta name="twitter:description" content="{{.Meta.Description}}" />
    <meta name="twitter:image" content="{{.Meta.Image}}" />
    <title>{{.Meta.Title}}</title>
  </head>
  <body>
    <main style="display: flex; justify-content: center; align-items: center; height: 100vh; font-family: sans-serif;">
      <div style="text-align: center;">
        <h1>{{.Meta.Title}}</h1>
        <p>{{.Meta.Description}}</p>
        {{- with .Poll.Description}}
        <div class="description">{{markdown .}}</div>
        {{- end}}
        <ul class="contenders">
          {{- range .Meta.Contenders}}
          <li>{{.Text}}: {{comma .Votes}}표</li>
          {{- end}}
        </ul>
        {{- if gt (len .Poll.Options) 2}}
        <ol class="options">
          {{- range .Poll.Options}}
          <li>{{.Text}} {{percentage . $.Poll}}%</li>
          {{- end}}
        </ol>
        {{- end}}
        <p class="total">총 {{comma .Poll.TotalVotes}}표 · {{daysAgo .Poll.CreatedAt}}</p>
        <a href="{{.Meta.URL}}" style="display: inline-block; margin-top: 20px; padding: 10px 20px; background-color: #8B5CF6; color: white; text-decoration: none; border-radius: 5px;">투표 참여하기</a>
      </div>
    </main>
  </body>
</html>
`))

var fallbackTemplate = template.Must(template.New("fallback").Parse(`<!doctype html>
<html lang="ko">
  <head>
    <meta charset="UTF-8" />
    <title>{{.Title}}</title>
    <meta property="og:title" content="{{.Title}}" />
    <meta property="og:description" content="{{.Description}}" />
    <meta property="og:image" content="{{.Image}}" />
  </head>
  <body>
    <main style="display: flex; justify-content: center; align-items: center; height: 100vh; font-family: sans-serif;">
      <div style="text-align: center;">
        <h1>THEGOAT123</h1>
        <p>근본 투표 배틀</p>
        <a href="{{.URL}}" style="display: inline-block; margin-top: 20px; padding: 10px 20px; background-color: #8B5CF6; color: white; text-decoration: none; border-radius: 5px;">투표 보러가기</a>
      </div>
    </main>
  </body>
</html>
`))
