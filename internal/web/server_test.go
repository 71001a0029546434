package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursesched/internal/config"
	"coursesched/internal/meets"
	"coursesched/internal/model"
	"coursesched/internal/planner"
	"coursesched/internal/schedule"
)

type fakeSource struct {
	mu     sync.Mutex
	sched  model.Schedule
	loaded bool
	err    error
}

func (f *fakeSource) Current() (model.Schedule, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sched, f.loaded
}

func (f *fakeSource) Status() schedule.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schedule.Status{Loaded: f.loaded, Title: f.sched.Title, LastError: f.err, UpdatedAt: time.Now()}
}

func course(id, title, raw string) model.Course {
	m, err := meets.Parse(raw)
	return model.Course{ID: id, Title: title, Meets: raw, Meeting: m, MeetsErr: err}
}

func fall2024() model.Schedule {
	return model.Schedule{
		Title: "Fall 2024",
		Courses: []model.Course{
			course("F101", "Intro to Programming", "MWF 10:00-10:50"),
			course("F213", "Computer Systems", "MWF 10:30-11:20"),
			course("W211", "Fundamentals II", "MWF 10:00-10:50"),
			course("W213", "Intro to Systems", "TuTh 11:00-12:20"),
			course("S394", "Agile Development", "TuTh 14:00-15:20"),
			course("F399", "Special Topics", "TBA"),
		},
	}
}

func newTestServer(t *testing.T, src *fakeSource, mutate func(*config.Config)) (*httptest.Server, *http.Client) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(cfg)
	}
	s, err := NewServer(cfg, src, planner.NewSessions(cfg.Term()))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func getDoc(t *testing.T, c *http.Client, u string) *goquery.Document {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func courseTexts(doc *goquery.Document) []string {
	var out []string
	doc.Find(".menu-item .course").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func TestIndexShowsFallByDefault(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	doc := getDoc(t, c, ts.URL+"/")
	assert.Equal(t, "Fall 2024", doc.Find("h1.title").Text())
	ready, _ := doc.Find(".container").Attr("data-ready")
	assert.Equal(t, "true", ready)

	texts := courseTexts(doc)
	require.Len(t, texts, 3)
	for _, text := range texts {
		assert.Contains(t, text, "Fall CS")
	}
	assert.Contains(t, texts[2], "time TBA")

	active := doc.Find(".term-selector .is-selected")
	assert.Equal(t, "Fall", strings.TrimSpace(active.Text()))
}

func TestSwitchToWinterKeepsSelection(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F101"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := getDoc(t, c, ts.URL+"/")
	assert.Equal(t, 1, doc.Find(`.course[data-id="F213"][disabled]`).Length())
	assert.True(t, doc.Find(`.course[data-id="F101"]`).HasClass("is-selected"))

	resp, err = c.PostForm(ts.URL+"/term", url.Values{"term": {"Winter"}})
	require.NoError(t, err)
	resp.Body.Close()

	doc = getDoc(t, c, ts.URL+"/")
	texts := courseTexts(doc)
	require.Len(t, texts, 2)
	for _, text := range texts {
		assert.Contains(t, text, "Winter")
	}
	// The Fall pick is still selected even though its control is hidden.
	assert.Equal(t, 0, doc.Find(`.course[data-id="F101"]`).Length())
	assert.Equal(t, 1, doc.Find(`.selected-course[data-id="F101"]`).Length())
	assert.Equal(t, 0, doc.Find(`.course[data-id="W211"][disabled]`).Length())
}

func TestToggleConflictRefused(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F101"}})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F213"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F000"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = c.PostForm(ts.URL+"/term", url.Values{"term": {"Summer"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeselectAfterReloadDropsCourse(t *testing.T) {
	src := &fakeSource{sched: fall2024(), loaded: true}
	ts, c := newTestServer(t, src, nil)

	resp, err := c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F101"}})
	require.NoError(t, err)
	resp.Body.Close()

	src.mu.Lock()
	src.sched.Courses = src.sched.Courses[1:]
	src.mu.Unlock()

	doc := getDoc(t, c, ts.URL+"/")
	assert.Equal(t, 1, doc.Find(`.course[data-id="F213"][disabled]`).Length())
	assert.Equal(t, 1, doc.Find(`.selected-course .deselect[data-id="F101"]`).Length())

	resp, err = c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F101"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	doc = getDoc(t, c, ts.URL+"/")
	assert.Equal(t, 0, doc.Find(".selected-course").Length())
	assert.Equal(t, 0, doc.Find(`.course[disabled]`).Length())
}

func TestUnknownTermRejectedByAPI(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.Post(ts.URL+"/api/term", "application/json", strings.NewReader(`{"term":"Summer"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unknown term: Summer", body.Error)
}

func TestSessionCookieSecureBehindTLS(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := NewServer(cfg, &fakeSource{sched: fall2024(), loaded: true}, planner.NewSessions(cfg.Term()))
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		proto  string
		secure bool
	}{
		{"plain", "", false},
		{"forwarded https", "https", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, sessionCookie, cookies[0].Name)
			assert.Equal(t, tc.secure, cookies[0].Secure)
			assert.True(t, cookies[0].HttpOnly)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.edu/api/view", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestLoadingAndErrorBanner(t *testing.T) {
	src := &fakeSource{}
	ts, c := newTestServer(t, src, nil)

	doc := getDoc(t, c, ts.URL+"/")
	assert.Equal(t, loadingBanner, doc.Find("h1.title").Text())
	ready, _ := doc.Find(".container").Attr("data-ready")
	assert.Equal(t, "false", ready)
	assert.Equal(t, 0, doc.Find(".notification").Length())

	src.mu.Lock()
	src.err = errors.New("fetch https://example.edu: 503 Service Unavailable")
	src.mu.Unlock()

	doc = getDoc(t, c, ts.URL+"/")
	assert.Contains(t, doc.Find(".notification").Text(), "503 Service Unavailable")

	resp, err := c.Get(ts.URL + "/api/schedule")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func decodeView(t *testing.T, resp *http.Response) viewResponse {
	t.Helper()
	defer resp.Body.Close()
	var v viewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPIFlow(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.Get(ts.URL + "/api/view")
	require.NoError(t, err)
	v := decodeView(t, resp)
	assert.Equal(t, "Fall", v.Term)
	assert.Equal(t, []string{"Fall", "Winter", "Spring"}, v.Terms)
	require.Len(t, v.Items, 3)
	assert.Equal(t, "MWF", v.Items[0].Days)
	assert.Equal(t, "10:00", v.Items[0].Start)
	assert.NotEmpty(t, v.Items[2].MeetsError)

	resp, err = c.Post(ts.URL+"/api/toggle", "application/json", strings.NewReader(`{"id":"F101"}`))
	require.NoError(t, err)
	v = decodeView(t, resp)
	require.Len(t, v.Selected, 1)
	assert.True(t, v.Items[0].Selected)
	assert.True(t, v.Items[1].Disabled)
	assert.Equal(t, []string{"F101"}, v.Items[1].ConflictsWith)

	resp, err = c.Post(ts.URL+"/api/toggle", "application/json", strings.NewReader(`{"id":"F213"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict conflictResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conflict))
	resp.Body.Close()
	assert.Equal(t, []string{"F101"}, conflict.ConflictsWith)

	resp, err = c.Post(ts.URL+"/api/term", "application/json", strings.NewReader(`{"term":"spring"}`))
	require.NoError(t, err)
	v = decodeView(t, resp)
	assert.Equal(t, "Spring", v.Term)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "S394", v.Items[0].ID)
	assert.Len(t, v.Selected, 1)

	resp, err = c.Post(ts.URL+"/api/term", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPISchedule(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.Get(ts.URL + "/api/schedule")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body scheduleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Fall 2024", body.Title)
	assert.Len(t, body.Courses, 6)
	assert.Equal(t, "Winter", body.Courses[2].Term)
}

func TestCalendarExport(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, nil)

	resp, err := c.PostForm(ts.URL+"/toggle", url.Values{"id": {"F101"}})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Get(ts.URL + "/schedule.ics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Fall CS 101: Intro to Programming")
	assert.Contains(t, string(body), "BYDAY=MO,WE,FR")
}

func TestBasicAuth(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	resp, err := c.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{sched: fall2024(), loaded: true}, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 2
	})

	var last int
	for i := 0; i < 3; i++ {
		resp, err := c.Post(ts.URL+"/api/term", "application/json", strings.NewReader(`{"term":"Fall"}`))
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestStaticStylesheet(t *testing.T) {
	ts, c := newTestServer(t, &fakeSource{}, nil)

	resp, err := c.Get(ts.URL + "/static/style.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}
