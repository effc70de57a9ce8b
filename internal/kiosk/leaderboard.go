package kiosk

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"kiosk-quiz-service/internal/domain"
)

const (
	leaderboardLoading = "Loading..."
	leaderboardEmpty   = "No leaderboard data."
	leaderboardFailed  = "Error loading leaderboard."
)

// LeaderboardView is the rendered leaderboard screen.
type LeaderboardView struct {
	Rows     []RankedRow `json:"rows"`
	YourRank int         `json:"yourRank,omitempty"`
	Summary  string      `json:"summary,omitempty"`
	Status   string      `json:"status,omitempty"`
}

// RankedRow is a leaderboard line with its display rank.
type RankedRow struct {
	Rank int `json:"rank"`
	domain.LeaderboardRow
	Highlighted bool `json:"highlighted"`
}

// LeaderboardRenderer fetches ranked results and marks the current participant's row.
// It never mutates anything and keeps no state between renders.
type LeaderboardRenderer struct {
	source LeaderboardSource
	topN   int
	logger *zap.Logger
}

func NewLeaderboardRenderer(source LeaderboardSource, topN int, logger *zap.Logger) *LeaderboardRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardRenderer{source: source, topN: topN, logger: logger}
}

// Render fetches the leaderboard and highlights the row whose regno matches. Failures become a
// status line on the returned view.
func (r *LeaderboardRenderer) Render(ctx context.Context, regno string) LeaderboardView {
	rows, err := r.source.FetchLeaderboard(ctx)
	if err != nil {
		r.logger.Warn("leaderboard fetch failed", zap.Error(err))
		var malformed *domain.MalformedResponseError
		if errors.As(err, &malformed) {
			return LeaderboardView{Rows: []RankedRow{}, Status: leaderboardEmpty}
		}
		return LeaderboardView{Rows: []RankedRow{}, Status: leaderboardFailed}
	}

	view := LeaderboardView{Rows: make([]RankedRow, 0, len(rows))}
	for idx, row := range rows {
		ranked := RankedRow{Rank: idx + 1, LeaderboardRow: row}
		if regno != "" && row.Regno == regno {
			ranked.Highlighted = true
			if view.YourRank == 0 {
				view.YourRank = ranked.Rank
				view.Summary = fmt.Sprintf("Your Rank: %d | Points: %d | Avg Time: %ss", ranked.Rank, row.Points, formatAvg(row.AvgTime))
			}
		}
		view.Rows = append(view.Rows, ranked)
	}
	if view.YourRank == 0 {
		view.Summary = fmt.Sprintf("You are not in the top %d.", r.topN)
	}
	return view
}

func formatAvg(avg *float64) string {
	if avg == nil {
		return ""
	}
	return strconv.FormatFloat(*avg, 'f', -1, 64)
}
