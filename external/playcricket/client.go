package playcricket

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/wicketworks/fantasy-cricket/internal/domain/scorecard"
	"github.com/wicketworks/fantasy-cricket/internal/platform/logging"
	"github.com/wicketworks/fantasy-cricket/internal/platform/resilience"
	"github.com/wicketworks/fantasy-cricket/internal/usecase"
)

const (
	defaultBaseURL   = "https://play-cricket.com/api/v2"
	providerDateForm = "02/01/2006"
)

var apiTokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errPlayCricketTransient = crerr.New("playcricket transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	// SiteIDs maps a configured club name to its provider site id. Clubs
	// without an entry cannot be listed.
	SiteIDs        map[string]string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client scrapes played matches and their scorecards from the Play-Cricket
// result API. It satisfies usecase.MatchSource.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	siteIDs        map[string]string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	siteIDs := make(map[string]string, len(cfg.SiteIDs))
	for club, siteID := range cfg.SiteIDs {
		club = strings.TrimSpace(club)
		siteID = strings.TrimSpace(siteID)
		if club == "" || siteID == "" {
			continue
		}
		siteIDs[club] = siteID
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		siteIDs:        siteIDs,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// ListRecentMatches returns played-match summaries for one club entered on or
// after the since date.
func (c *Client) ListRecentMatches(ctx context.Context, club string, since time.Time) ([]scorecard.MatchSummary, error) {
	siteID, ok := c.siteIDs[strings.TrimSpace(club)]
	if !ok {
		return nil, fmt.Errorf("%w: no site id configured for club %q", usecase.ErrInvalidInput, club)
	}

	var envelope resultSummaryEnvelope
	query := map[string]string{
		"site_id":         siteID,
		"from_entry_date": since.Format(providerDateForm),
	}
	if _, err := c.doJSON(ctx, "/result_summary.json", query, &envelope); err != nil {
		return nil, fmt.Errorf("list results site_id=%s: %w", siteID, err)
	}

	out := make([]scorecard.MatchSummary, 0, len(envelope.ResultSummary))
	for _, item := range envelope.ResultSummary {
		summary := item.toDomain()
		if summary.MatchID == "" {
			continue
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

// FetchScorecard returns the full scorecard for one played match.
func (c *Client) FetchScorecard(ctx context.Context, matchID string) (scorecard.Scorecard, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return scorecard.Scorecard{}, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	var envelope matchDetailEnvelope
	if _, err := c.doJSON(ctx, "/match_detail.json", map[string]string{"match_id": matchID}, &envelope); err != nil {
		return scorecard.Scorecard{}, fmt.Errorf("fetch scorecard match_id=%s: %w", matchID, err)
	}
	if len(envelope.MatchDetails) == 0 {
		return scorecard.Scorecard{}, fmt.Errorf("provider returned no detail for match_id=%s", matchID)
	}

	return envelope.MatchDetails[0].toDomain(matchID), nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "playcricket circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("api_token", c.token)

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isPlayCricketCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errPlayCricketTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errPlayCricketTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errPlayCricketTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(retryBackoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "playcricket request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func isPlayCricketCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errPlayCricketTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

const maxRetryBackoff = 30 * time.Second

// retryBackoff doubles per attempt: 1s, 2s, 4s, ... capped at 30s.
func retryBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxRetryBackoff
	}
	backoff := time.Second << attempt
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	return backoff
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return apiTokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("api_token") {
		query.Set("api_token", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type resultSummaryEnvelope struct {
	ResultSummary []resultSummaryItem `json:"result_summary"`
}

// Play-Cricket serializes ids and dates as strings; numeric tallies inside the
// detail payload are strings too.
type resultSummaryItem struct {
	ID            int64  `json:"id"`
	MatchDate     string `json:"match_date"`
	HomeClubName  string `json:"home_club_name"`
	AwayClubName  string `json:"away_club_name"`
	CompetitionID string `json:"competition_id"`
	LeagueName    string `json:"league_name"`
	HomeTeamName  string `json:"home_team_name"`
}

func (item resultSummaryItem) toDomain() scorecard.MatchSummary {
	summary := scorecard.MatchSummary{
		HomeClub: strings.TrimSpace(item.HomeClubName),
		AwayClub: strings.TrimSpace(item.AwayClubName),
		Grade:    gradeFromTeamName(item.HomeTeamName),
	}
	if item.ID > 0 {
		summary.MatchID = strconv.FormatInt(item.ID, 10)
	}
	if parsed, err := time.Parse(providerDateForm, strings.TrimSpace(item.MatchDate)); err == nil {
		summary.PlayedAt = parsed
	}
	return summary
}

// gradeFromTeamName extracts the trailing side number from names like
// "Amstelveen CC 2nd XI" or "Amstelveen CC 2".
func gradeFromTeamName(teamName string) string {
	fields := strings.Fields(strings.TrimSpace(teamName))
	for i := len(fields) - 1; i >= 0; i-- {
		digits := strings.TrimFunc(fields[i], func(r rune) bool { return r < '0' || r > '9' })
		if digits != "" {
			return digits
		}
	}
	return ""
}

type matchDetailEnvelope struct {
	MatchDetails []matchDetail `json:"match_details"`
}

type matchDetail struct {
	MatchDate string         `json:"match_date"`
	Innings   []inningsBlock `json:"innings"`
}

type inningsBlock struct {
	TeamBattingName string        `json:"team_batting_name"`
	Bat             []battingLine `json:"bat"`
	Bowl            []bowlingLine `json:"bowl"`
}

type battingLine struct {
	BatsmanName string `json:"batsman_name"`
	HowOut      string `json:"how_out"`
	Runs        string `json:"runs"`
	Balls       string `json:"balls"`
	FielderName string `json:"fielder_name"`
}

type bowlingLine struct {
	BowlerName string `json:"bowler_name"`
	Overs      string `json:"overs"`
	Maidens    string `json:"maidens"`
	Runs       string `json:"runs"`
	Wickets    string `json:"wickets"`
}

func (detail matchDetail) toDomain(matchID string) scorecard.Scorecard {
	card := scorecard.Scorecard{MatchID: matchID}
	if parsed, err := time.Parse(providerDateForm, strings.TrimSpace(detail.MatchDate)); err == nil {
		card.PlayedAt = parsed
	}

	// Fielding credits accrue to the side bowling each innings.
	credits := make(map[string]*scorecard.FieldingCredit)
	credit := func(name, club string) *scorecard.FieldingCredit {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name) + "::" + strings.ToLower(club)
		if c, ok := credits[key]; ok {
			return c
		}
		c := &scorecard.FieldingCredit{PlayerName: name, Club: club}
		credits[key] = c
		return c
	}

	for i, block := range detail.Innings {
		battingClub := clubFromTeamName(block.TeamBattingName)
		bowlingClub := ""
		if other := otherInnings(detail.Innings, i); other != nil {
			bowlingClub = clubFromTeamName(other.TeamBattingName)
		}

		innings := scorecard.Innings{BattingClub: battingClub}
		for _, bat := range block.Bat {
			name := strings.TrimSpace(bat.BatsmanName)
			if name == "" {
				continue
			}
			howOut := strings.ToLower(strings.TrimSpace(bat.HowOut))
			if howOut == "did not bat" {
				continue
			}
			innings.BattingRows = append(innings.BattingRows, scorecard.BattingRow{
				PlayerName: name,
				Club:       battingClub,
				Runs:       parseProviderInt(bat.Runs),
				BallsFaced: parseProviderInt(bat.Balls),
				Dismissed:  howOut != "" && howOut != "not out" && howOut != "retired not out",
			})
			if fielder := strings.TrimSpace(bat.FielderName); fielder != "" && bowlingClub != "" {
				c := credit(fielder, bowlingClub)
				switch {
				case strings.HasPrefix(howOut, "ct"), strings.HasPrefix(howOut, "caught"):
					c.Catches++
				case strings.HasPrefix(howOut, "st"), strings.HasPrefix(howOut, "stumped"):
					c.Stumpings++
				case strings.Contains(howOut, "run out"):
					c.Runouts++
				}
			}
		}
		for _, bowl := range block.Bowl {
			name := strings.TrimSpace(bowl.BowlerName)
			if name == "" {
				continue
			}
			innings.BowlingRows = append(innings.BowlingRows, scorecard.BowlingRow{
				PlayerName:   name,
				Club:         bowlingClub,
				BallsBowled:  ballsFromOvers(bowl.Overs),
				RunsConceded: parseProviderInt(bowl.Runs),
				Wickets:      parseProviderInt(bowl.Wickets),
				Maidens:      parseProviderInt(bowl.Maidens),
			})
		}
		card.Innings = append(card.Innings, innings)
	}

	names := make([]string, 0, len(credits))
	for key := range credits {
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range names {
		card.FieldingCredits = append(card.FieldingCredits, *credits[key])
	}
	return card
}

func otherInnings(blocks []inningsBlock, index int) *inningsBlock {
	for i := range blocks {
		if i != index {
			return &blocks[i]
		}
	}
	return nil
}

// clubFromTeamName strips the trailing side designation, so "Amstelveen CC
// 2nd XI" and "Amstelveen CC 2" both map to "Amstelveen CC".
func clubFromTeamName(teamName string) string {
	fields := strings.Fields(strings.TrimSpace(teamName))
	for len(fields) > 0 {
		last := strings.ToLower(fields[len(fields)-1])
		trimmed := strings.TrimFunc(last, func(r rune) bool { return r < '0' || r > '9' })
		if trimmed != "" || last == "xi" {
			fields = fields[:len(fields)-1]
			continue
		}
		break
	}
	return strings.Join(fields, " ")
}

// ballsFromOvers converts cricket overs notation ("7.3" is seven overs and
// three balls) into a ball count.
func ballsFromOvers(overs string) int {
	overs = strings.TrimSpace(overs)
	if overs == "" {
		return 0
	}
	whole, part, found := strings.Cut(overs, ".")
	balls := parseProviderInt(whole) * 6
	if found {
		balls += parseProviderInt(part)
	}
	return balls
}

func parseProviderInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
