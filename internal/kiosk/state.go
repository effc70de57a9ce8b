package kiosk

import "fmt"

// State is the screen currently shown on the display.
type State int

const (
	StateIntro State = iota
	StateWelcome
	StateRegistration
	StateQuiz
	StateSubmitting
	StateResults
	StateLeaderboard
)

var stateNames = map[State]string{
	StateIntro:        "intro",
	StateWelcome:      "welcome",
	StateRegistration: "registration",
	StateQuiz:         "quiz",
	StateSubmitting:   "submitting",
	StateResults:      "results",
	StateLeaderboard:  "leaderboard",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Snapshot is everything the display needs to draw the current screen.
type Snapshot struct {
	State       State            `json:"state"`
	Badge       *Badge           `json:"badge,omitempty"`
	Status      string           `json:"status,omitempty"`
	CanStart    bool             `json:"canStart"`
	Question    *QuestionView    `json:"question,omitempty"`
	Message     string           `json:"message,omitempty"`
	Leaderboard *LeaderboardView `json:"leaderboard,omitempty"`
}

// Badge identifies the participant in the corner of the display.
type Badge struct {
	Name    string `json:"name"`
	Regno   string `json:"regno"`
	Initial string `json:"initial"`
}

// QuestionView is the question on screen and its countdown.
type QuestionView struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Selected  *int     `json:"selected"`
	Remaining int      `json:"remaining"`
}
