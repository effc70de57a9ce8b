package domain

import "strings"

// Question is the participant-facing view of a catalog entry. The answer key never leaves the backend.
type Question struct {
	ID       *int     `json:"id,omitempty"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// IDOr returns the question identifier, falling back to its position in the catalog.
func (q Question) IDOr(position int) int {
	if q.ID != nil {
		return *q.ID
	}
	return position
}

// CatalogEntry is a stored question including its answer key.
type CatalogEntry struct {
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Answer   int      `json:"answer" yaml:"answer"`
}

// Catalog is the ordered set of questions served to every participant.
type Catalog []CatalogEntry

// Public strips the answer key; ids are positional.
func (c Catalog) Public() []Question {
	out := make([]Question, len(c))
	for i, entry := range c {
		id := i
		out[i] = Question{ID: &id, Question: entry.Question, Options: entry.Options}
	}
	return out
}

// AnswerEntry is one ledger record. A nil Selected means the question was left unanswered.
type AnswerEntry struct {
	QuestionID int  `json:"qId"`
	Selected   *int `json:"selected"`
	TimeSec    *int `json:"time_sec"`
}

// Answered reports whether a real option was chosen.
func (a AnswerEntry) Answered() bool {
	return a.Selected != nil
}

// Identity is the participant currently at the kiosk; regno is the leaderboard join key.
type Identity struct {
	Name  string `json:"name"`
	Regno string `json:"regno"`
}

// Complete reports whether both fields are populated.
func (i Identity) Complete() bool {
	return strings.TrimSpace(i.Name) != "" && strings.TrimSpace(i.Regno) != ""
}

// Initial is the avatar letter shown on the badge.
func (i Identity) Initial() string {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(name)[:1]))
}

// Registration is the form submitted at the registration screen.
type Registration struct {
	Name       string `json:"name"`
	Regno      string `json:"regno"`
	College    string `json:"college"`
	Department string `json:"department"`
	Year       string `json:"year"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r Registration) Trimmed() Registration {
	return Registration{
		Name:       strings.TrimSpace(r.Name),
		Regno:      strings.TrimSpace(r.Regno),
		College:    strings.TrimSpace(r.College),
		Department: strings.TrimSpace(r.Department),
		Year:       strings.TrimSpace(r.Year),
	}
}

// RegistrationResult is the backend acknowledgment of a registration.
type RegistrationResult struct {
	Success bool   `json:"success"`
	Name    string `json:"name,omitempty"`
	Regno   string `json:"regno,omitempty"`
	Message string `json:"message,omitempty"`
}

// Submission carries a finalized ledger, one entry per catalog question in catalog order.
type Submission struct {
	Name    string        `json:"name"`
	Regno   string        `json:"regno"`
	Answers []AnswerEntry `json:"answers"`
}

// SubmissionResult is the backend acknowledgment of a submission.
type SubmissionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Participant is a registered kiosk user.
type Participant struct {
	Name       string
	Regno      string
	College    string
	Department string
	Year       int
}

// Result aggregates a participant's score.
type Result struct {
	Regno   string
	Correct int
	Points  int
	AvgTime float64
}

// LeaderboardRow is one ranked line; rank is the 1-based position in the returned order.
type LeaderboardRow struct {
	Name    string   `json:"name"`
	Regno   string   `json:"regno"`
	Correct int      `json:"correct"`
	Points  int      `json:"points"`
	AvgTime *float64 `json:"avg_time"`
}
