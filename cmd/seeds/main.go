package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/cmd"
	"github.com/thegoat123/thegoat/pgstore"
)

var users = []string{"tintin", "milou", "haddock", "castafiore", "tournesol"}

type seedPoll struct {
	title       string
	description string
	category    string
	hot         bool
	options     []string
}

var polls = []seedPoll{
	{"BLACKPINK vs 뉴진스 - 2025 최고의 K-POP 걸그룹은?", "2025년을 빛낼 최고의 K-POP 걸그룹을 선택해주세요!", "entertainment", true, []string{"BLACKPINK", "뉴진스"}},
	{"2025년 MZ세대 필수 아이템은?", "올해 꼭 가져야 할 아이템을 투표해주세요", "life", true, []string{"에어팟 프로", "스탠리 텀블러", "아이패드", "닌텐도 스위치"}},
	{"치킨 vs 피자 - 영원한 야식 대결", "금요일 밤, 당신의 선택은?", "food", false, []string{"치킨", "피자"}},
	{"2025 최고의 AI 서비스는?", "가장 유용한 AI 서비스를 선택해주세요", "tech", true, []string{"ChatGPT", "Claude", "Gemini", "Copilot"}},
	{"아이폰 vs 갤럭시 - 2025 스마트폰 대전", "당신의 선택은?", "tech", false, []string{"아이폰", "갤럭시"}},
	{"2025 최고의 넷플릭스 드라마는?", "올해 가장 재밌게 본 드라마를 선택해주세요", "entertainment", true, []string{"오징어 게임", "더 글로리", "무빙"}},
	{"짜장면 vs 짬뽕", "중국집에서 늘 하는 고민", "food", false, []string{"짜장면", "짬뽕"}},
	{"최고의 e스포츠 종목은?", "", "game", false, []string{"리그 오브 레전드", "발로란트", "배틀그라운드"}},
}

var comments = []string{
	"이건 고민할 필요도 없지",
	"둘 다 좋은데... 어렵다",
	"압도적으로 첫 번째!",
	"생각보다 박빙이네요 ㅋㅋ",
	"다음엔 다른 주제도 올려주세요",
}

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)
	logger.Info().Msg("Seeding database")

	ctx := context.Background()

	// setup database
	pg := pgstore.New(cfg.DatabaseURL())
	err = pg.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("Can't connect to database")
	}
	if err := pg.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Can't create tables")
	}

	var userIDs []string
	for _, u := range users {
		id, err := pg.CreateOrUpdateUser(ctx, u, u+"@gmail.com")
		if err != nil {
			log.Fatal().Err(err).Msg("Can't create user")
		}
		userIDs = append(userIDs, id)
	}

	// polls are authored in turn by each user
	for i, sp := range polls {
		pollType := thegoat.PollTypeMultiple
		if len(sp.options) == 2 {
			pollType = thegoat.PollTypeVersus
		}

		poll := thegoat.NewPoll(sp.title, sp.description, pollType, sp.category, userIDs[i%len(userIDs)])
		poll.IsHot = sp.hot
		for _, text := range sp.options {
			poll.AddOption(text, "", "")
		}

		err = pg.InsertPoll(ctx, poll)
		if err != nil {
			log.Fatal().Err(err).Str("title", sp.title).Msg("Can't create poll")
		}

		// anonymous votes, skewed towards the first options
		votes := 5 + rand.Intn(40)
		for v := 0; v < votes; v++ {
			option := poll.Options[rand.Intn(len(poll.Options))]
			if rand.Intn(3) == 0 {
				option = poll.Options[0]
			}
			identity := thegoat.Identity{Addr: fmt.Sprintf("10.0.%d.%d", i, v)}

			err := pg.InsertVote(ctx, thegoat.NewVote(poll.ID, option.ID, identity))
			if err != nil {
				log.Fatal().Err(err).Msg("Can't create vote")
			}
		}

		for j := 0; j < i%len(comments); j++ {
			var optionID *string
			if j%2 == 0 {
				optionID = &poll.Options[j%len(poll.Options)].ID
			}
			comment := thegoat.NewComment(poll.ID, optionID, comments[j], userIDs[(i+j)%len(userIDs)])
			if err := pg.InsertComment(ctx, comment); err != nil {
				log.Fatal().Err(err).Msg("Can't create comment")
			}
		}

		logger.Info().Str("title", poll.Title).Int("votes", votes).Msg("Created poll")
	}
}
