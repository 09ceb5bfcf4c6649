package integration

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/sessions"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/authentication/fake_auth"
	"github.com/thegoat123/thegoat/authentication/password_auth"
	"github.com/thegoat123/thegoat/imagestore"
	"github.com/thegoat123/thegoat/memstore"
	"github.com/thegoat123/thegoat/realtime"
	"golang.org/x/crypto/bcrypt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const testServerHost = "localhost:8081"

// testingLogWriter is an output target for zerolog which will print on the testing logger.
type testingLogWriter struct {
	c *qt.C
}

// Write outputs on the passed bytes on the test logger
func (l *testingLogWriter) Write(p []byte) (n int, err error) {
	str := string(p[0 : len(p)-1]) // drop the final \n
	l.c.Log(str)
	return len(p), nil
}

// A struct to hold the server and its components.
// Provides a few helpers for convenience.
type testContext struct {
	c          *qt.C
	server     *thegoat.Server
	testServer *httptest.Server
	store      *memstore.MemStore
	images     *imagestore.Memory
	hub        *realtime.Hub
}

// newTestContext creates a server instance with its component initialized for integration testing.
func newTestContext(c *qt.C) *testContext {
	tc := testContext{c: c}

	w := testingLogWriter{c}
	output := zerolog.ConsoleWriter{Out: &w, NoColor: true}
	logger := zerolog.New(output)

	tc.store = memstore.New()
	tc.images = imagestore.NewMemory("https://images.test")
	sessionStore := sessions.NewCookieStore([]byte("test"))
	fakeAuth := fake_auth.New(sessionStore)

	tc.server = thegoat.NewServer(
		&thegoat.ServerConfig{Addr: testServerHost, PollsPerPage: 3},
		logger,
		tc.store,
		fakeAuth,
	)
	tc.server.UsePasswordAuth(password_auth.New(tc.store, sessionStore, logger).WithCost(bcrypt.MinCost))
	tc.server.UseUploader(tc.images)
	tc.hub = realtime.NewHub(logger)
	tc.server.UseBroker(tc.hub)
	tc.testServer = httptest.NewServer(tc.server)

	fakeAuth.SetServerURL(tc.testServer.URL)

	return &tc
}

// url returns an url to the test server based on the given path
func (tc *testContext) url(path string) string {
	return tc.testServer.URL + path
}

// prepareServer boots up the server and sets up its teardown for the current test
func (tc *testContext) prepareServer() {
	tc.c.Assert(tc.server.Prepare(), qt.IsNil, qt.Commentf("couldn't prepare the server"))
	tc.c.Cleanup(func() {
		tc.testServer.Close()
	})
}

func (tc *testContext) newHTTPClient() *http.Client {
	jar, err := cookiejar.New(nil)
	tc.c.Assert(err, qt.IsNil)

	return &http.Client{
		Jar: jar,
	}
}

// newAuthenticatedClient goes through the fake OAuth flow, each call signing in a new user.
// The callback redirects to the client application, which isn't served here, so redirects stop there.
func (tc *testContext) newAuthenticatedClient() *http.Client {
	client := tc.newHTTPClient()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.URL.Path == "/" {
			return http.ErrUseLastResponse
		}
		return nil
	}

	resp, err := client.Get(tc.url("/oauth/start"))
	tc.c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	tc.c.Assert(resp.StatusCode, qt.Equals, http.StatusFound)
	return client
}

// do sends body encoded in JSON, if any, and decodes the response in out, if any.
func (tc *testContext) do(client *http.Client, method string, path string, body interface{}, out interface{}) *http.Response {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		tc.c.Assert(err, qt.IsNil)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, tc.url(path), r)
	tc.c.Assert(err, qt.IsNil)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	tc.c.Assert(err, qt.IsNil)
	defer resp.Body.Close()

	if out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
		tc.c.Assert(err, qt.IsNil, qt.Commentf("%s %s answered %d", method, path, resp.StatusCode))
	}

	return resp
}

// uploadImage posts data as the image field of a multipart form, labelled with contentType.
func (tc *testContext) uploadImage(client *http.Client, path string, filename string, contentType string, data []byte) *http.Response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	tc.c.Assert(err, qt.IsNil)
	_, err = part.Write(data)
	tc.c.Assert(err, qt.IsNil)
	tc.c.Assert(mw.Close(), qt.IsNil)

	resp, err := client.Post(tc.url(path), mw.FormDataContentType(), &body)
	tc.c.Assert(err, qt.IsNil)
	return resp
}

// createPoll creates a poll through the API and returns it.
func (tc *testContext) createPoll(client *http.Client, in *thegoat.PollInput) *pollResponse {
	var poll pollResponse
	resp := tc.do(client, http.MethodPost, "/api/polls", in, &poll)
	tc.c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	return &poll
}

func versusInput(title string, a string, b string) *thegoat.PollInput {
	return &thegoat.PollInput{
		Title:    title,
		PollType: thegoat.PollTypeVersus,
		Category: "food",
		Options:  []thegoat.OptionInput{{Text: a}, {Text: b}},
	}
}

type optionResponse struct {
	ID         string `json:"id"`
	Text       string `json:"option_text"`
	VoteCount  int64  `json:"vote_count"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
	Image      string `json:"option_image"`
}

type pollResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	PollType        string            `json:"poll_type"`
	Category        string            `json:"category"`
	TotalVotes      int64             `json:"total_votes"`
	Author          string            `json:"author"`
	Closed          bool              `json:"closed"`
	LeadingOptionID string            `json:"leading_option_id"`
	Options         []*optionResponse `json:"options"`
}

type pollsPageResponse struct {
	Polls   []*pollResponse `json:"polls"`
	Page    int             `json:"page"`
	HasMore bool            `json:"has_more"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields"`
}
