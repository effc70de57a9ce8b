package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kiosk-quiz-service/internal/app"
	"kiosk-quiz-service/internal/domain"
	"kiosk-quiz-service/internal/infra/memory"
)

func newTestService(t *testing.T) (*app.QuizService, *memory.ResultStore) {
	t.Helper()
	results := memory.NewResultStore()
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleCatalog()), time.Minute)
	return app.NewQuizService(catalog, results, results, 20, nil), results
}

func newAPIServer(t *testing.T) (*httptest.Server, *memory.ResultStore) {
	t.Helper()
	service, results := newTestService(t)
	mux := http.NewServeMux()
	NewAPIHandler(service, nil).Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, results
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, decoded
}

func TestAPIRegisterSubmitLeaderboard(t *testing.T) {
	server, results := newAPIServer(t)

	resp, body := postJSON(t, server.URL+"/register", sampleRegistration())
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("register: status %d body %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, server.URL+"/register", sampleRegistration())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate regno, got %d", resp.StatusCode)
	}
	if body["message"] != "Registration already exists for this regno" {
		t.Fatalf("unexpected duplicate message %v", body["message"])
	}

	one, two, five := 1, 2, 5
	submission := domain.Submission{
		Name:  " Ada ",
		Regno: "R1",
		Answers: []domain.AnswerEntry{
			{QuestionID: 0, Selected: &one, TimeSec: &two},
			{QuestionID: 1, Selected: nil, TimeSec: &five},
		},
	}
	resp, body = postJSON(t, server.URL+"/submit-quiz", submission)
	if resp.StatusCode != http.StatusOK || body["success"] != true || body["redirect"] != "/leaderboard" {
		t.Fatalf("submit: status %d body %v", resp.StatusCode, body)
	}
	if got := results.Answers("R1"); len(got) != 2 {
		t.Fatalf("expected 2 stored answers, got %d", len(got))
	}

	lbResp, err := http.Get(server.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer lbResp.Body.Close()
	var rows []domain.LeaderboardRow
	if err := json.NewDecoder(lbResp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(rows) != 1 || rows[0].Regno != "R1" || rows[0].Points != 2 || rows[0].Correct != 1 {
		t.Fatalf("unexpected leaderboard %+v", rows)
	}
	if rows[0].AvgTime == nil || *rows[0].AvgTime != 3.5 {
		t.Fatalf("expected avg 3.5, got %v", rows[0].AvgTime)
	}
}

func TestAPIRegisterValidation(t *testing.T) {
	server, _ := newAPIServer(t)

	form := sampleRegistration()
	form.Year = "third"
	resp, body := postJSON(t, server.URL+"/register", form)
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Year must be a number" {
		t.Fatalf("bad year: status %d body %v", resp.StatusCode, body)
	}

	form = sampleRegistration()
	form.College = "  "
	resp, body = postJSON(t, server.URL+"/register", form)
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Missing fields" {
		t.Fatalf("missing field: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPISubmitRequiresRegistration(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, body := postJSON(t, server.URL+"/submit-quiz", domain.Submission{Name: "Ghost", Regno: "R404"})
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Please register first" {
		t.Fatalf("unregistered submit: status %d body %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, server.URL+"/submit-quiz", domain.Submission{Name: "Nobody"})
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Missing regno" {
		t.Fatalf("missing regno: status %d body %v", resp.StatusCode, body)
	}
}

func TestAPIQuestionsHideAnswerKey(t *testing.T) {
	server, _ := newAPIServer(t)

	resp, err := http.Get(server.URL + "/questions")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(buf.String(), "answer") {
		t.Fatalf("answer key leaked: %s", buf.String())
	}
	var questions []domain.Question
	if err := json.Unmarshal(buf.Bytes(), &questions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(questions) != 3 || questions[2].IDOr(-1) != 2 {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func sampleRegistration() domain.Registration {
	return domain.Registration{Name: "Ada", Regno: "R1", College: "Analytical", Department: "Maths", Year: "2"}
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		{Question: "2 + 2?", Options: []string{"3", "4", "5"}, Answer: 1},
		{Question: "Capital of France?", Options: []string{"Paris", "Rome"}, Answer: 0},
		{Question: "Largest planet?", Options: []string{"Mars", "Jupiter", "Venus"}, Answer: 1},
	}
}
