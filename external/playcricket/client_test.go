package playcricket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
	"github.com/wicketworks/fantasy-cricket/internal/usecase"
)

func newTestClient(t *testing.T, handler http.Handler, maxRetries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Token:      "secret-token",
		SiteIDs:    map[string]string{"Amstelveen CC": "1234"},
		MaxRetries: maxRetries,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          false,
			FailureThreshold: 5,
		},
	})
}

func TestListRecentMatches_MapsSummaryRows(t *testing.T) {
	t.Parallel()

	var gotQuery atomic.Value
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(`{"result_summary": [
			{"id": 9001, "match_date": "02/05/2026",
			 "home_club_name": "Amstelveen CC", "away_club_name": "Rotterdam Rhinos",
			 "home_team_name": "Amstelveen CC 2nd XI"},
			{"id": 0, "match_date": "03/05/2026",
			 "home_club_name": "Ghost", "away_club_name": "Ghost"}
		]}`))
	}), 0)

	since := time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC)
	matches, err := client.ListRecentMatches(t.Context(), "Amstelveen CC", since)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected the id-less row dropped, got %d matches", len(matches))
	}

	m := matches[0]
	if m.MatchID != "9001" {
		t.Fatalf("expected match id 9001, got %q", m.MatchID)
	}
	if !m.PlayedAt.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day-first date parsing, got %v", m.PlayedAt)
	}
	if m.HomeClub != "Amstelveen CC" || m.AwayClub != "Rotterdam Rhinos" {
		t.Fatalf("unexpected clubs: %+v", m)
	}
	if m.Grade != "2" {
		t.Fatalf("expected grade 2 from team name, got %q", m.Grade)
	}

	query := gotQuery.Load().(url.Values)
	if got := query.Get("site_id"); got != "1234" {
		t.Fatalf("expected site_id=1234, got %q", got)
	}
	if got := query.Get("from_entry_date"); got != "27/04/2026" {
		t.Fatalf("expected from_entry_date=27/04/2026, got %q", got)
	}
}

func TestListRecentMatches_UnknownClub(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for an unconfigured club")
	}), 0)

	_, err := client.ListRecentMatches(t.Context(), "Unknown CC", time.Now())
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFetchScorecard_MapsInningsAndFielding(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"match_details": [{
			"match_date": "02/05/2026",
			"innings": [
				{
					"team_batting_name": "Amstelveen CC 1st XI",
					"bat": [
						{"batsman_name": "J. de Vries", "how_out": "ct", "fielder_name": "N. de Boer", "runs": "105", "balls": "84"},
						{"batsman_name": "T. Smit", "how_out": "not out", "runs": "20", "balls": "31"},
						{"batsman_name": "D. Visser", "how_out": "did not bat", "runs": "", "balls": ""}
					],
					"bowl": [
						{"bowler_name": "L. van Dam", "overs": "10", "maidens": "2", "runs": "40", "wickets": "5"}
					]
				},
				{
					"team_batting_name": "Rotterdam Rhinos 1st XI",
					"bat": [
						{"batsman_name": "A. Mehta", "how_out": "run out", "fielder_name": "J. Bakker", "runs": "12", "balls": "20"}
					],
					"bowl": [
						{"bowler_name": "J. Bakker", "overs": "7.3", "maidens": "0", "runs": "30", "wickets": "1"}
					]
				}
			]
		}]}`))
	}), 0)

	card, err := client.FetchScorecard(t.Context(), "9001")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if card.MatchID != "9001" {
		t.Fatalf("expected match id carried through, got %q", card.MatchID)
	}
	if len(card.Innings) != 2 {
		t.Fatalf("expected 2 innings, got %d", len(card.Innings))
	}

	first := card.Innings[0]
	if first.BattingClub != "Amstelveen CC" {
		t.Fatalf("expected side designation stripped, got %q", first.BattingClub)
	}
	if len(first.BattingRows) != 2 {
		t.Fatalf("expected the did-not-bat row dropped, got %d rows", len(first.BattingRows))
	}
	if row := first.BattingRows[0]; row.Runs != 105 || row.BallsFaced != 84 || !row.Dismissed {
		t.Fatalf("unexpected century row: %+v", row)
	}
	if first.BattingRows[1].Dismissed {
		t.Fatal("not-out batter must not count as dismissed")
	}
	if row := first.BowlingRows[0]; row.Club != "Rotterdam Rhinos" || row.BallsBowled != 60 || row.Wickets != 5 {
		t.Fatalf("unexpected bowling row: %+v", row)
	}

	if got := card.Innings[1].BowlingRows[0].BallsBowled; got != 45 {
		t.Fatalf("expected 7.3 overs as 45 balls, got %d", got)
	}

	credits := map[string][3]int{}
	for _, c := range card.FieldingCredits {
		credits[c.PlayerName+"/"+c.Club] = [3]int{c.Catches, c.Stumpings, c.Runouts}
	}
	if got := credits["N. de Boer/Rotterdam Rhinos"]; got != [3]int{1, 0, 0} {
		t.Fatalf("expected one catch for N. de Boer, got %v", got)
	}
	if got := credits["J. Bakker/Amstelveen CC"]; got != [3]int{0, 0, 1} {
		t.Fatalf("expected one runout for J. Bakker, got %v", got)
	}
}

func TestExecuteRequest_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"match_details": [{"match_date": "02/05/2026", "innings": []}]}`))
	}), 2)

	if _, err := client.FetchScorecard(t.Context(), "9001"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestExecuteRequest_DoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), 3)

	if _, err := client.FetchScorecard(t.Context(), "9001"); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt for 404, got %d", calls.Load())
	}
}

func TestDoJSON_CircuitBreakerRejects(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		Token:      "secret-token",
		SiteIDs:    map[string]string{"Amstelveen CC": "1234"},
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.FetchScorecard(t.Context(), "9001"); err == nil {
		t.Fatal("expected failure to trip the breaker")
	}
	_, err := client.FetchScorecard(t.Context(), "9002")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable once open, got %v", err)
	}
}

func TestSanitizeSensitiveText_RedactsToken(t *testing.T) {
	t.Parallel()

	got := sanitizeSensitiveText("dial failed for /x?api_token=secret-token&site_id=1", "secret-token")
	if got != "dial failed for /x?api_token=REDACTED&site_id=1" {
		t.Fatalf("token leaked: %q", got)
	}
}

func TestRetryBackoff_DoublesAndCaps(t *testing.T) {
	t.Parallel()

	cases := map[int]time.Duration{
		0:  time.Second,
		1:  2 * time.Second,
		2:  4 * time.Second,
		4:  16 * time.Second,
		5:  30 * time.Second,
		10: 30 * time.Second,
	}
	for attempt, want := range cases {
		if got := retryBackoff(attempt); got != want {
			t.Fatalf("retryBackoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestBallsFromOvers(t *testing.T) {
	t.Parallel()

	cases := map[string]int{"": 0, "10": 60, "7.3": 45, "0.4": 4}
	for overs, want := range cases {
		if got := ballsFromOvers(overs); got != want {
			t.Fatalf("ballsFromOvers(%q) = %d, want %d", overs, got, want)
		}
	}
}
