package service

import (
	"fmt"
	"math"
	"strings"

	"spilledin/internal/models"
)

// RecapSystemMessage frames the model as the community manager.
const RecapSystemMessage = "You are a witty community manager creating monthly recaps for an anonymous confession platform. Your tone should be engaging and slightly irreverent, but never cruel or harmful. Focus on community trends and interesting patterns rather than individual drama."

const (
	recapTopConfessions = 5
	recapTopUsers       = 3
	recapPreviewRunes   = 100
	noToxicUsersLine    = "No particularly toxic users this month 😇"
	anonymousAuthor     = "Anonymous"
)

// jsRound rounds half up, matching how scores have always been displayed.
func jsRound(v float64) float64 {
	return math.Floor(v + 0.5)
}

func confessionPreview(content string) string {
	runes := []rune(content)
	if len(runes) > recapPreviewRunes {
		return string(runes[:recapPreviewRunes]) + "..."
	}
	return content
}

// BuildRecapPrompt renders the user prompt for a monthly recap.
func BuildRecapPrompt(monthName string, year int, agg *recapAggregate) string {
	var confessions strings.Builder
	for i, c := range agg.TopConfessions {
		if i > 0 {
			confessions.WriteString("\n")
		}
		author := anonymousAuthor
		if c.User != nil && c.User.AnonymousUsername != "" {
			author = c.User.AnonymousUsername
		}
		fmt.Fprintf(&confessions, "%d. \"%s\" (%d net votes, by %s)", i+1, confessionPreview(c.Content), c.NetScore, author)
	}

	users := noToxicUsersLine
	if len(agg.TopUsers) > 0 {
		lines := make([]string, len(agg.TopUsers))
		for i, u := range agg.TopUsers {
			lines[i] = fmt.Sprintf("%d. %s - %d toxicity points", i+1, u.AnonymousUsername, u.ToxicityScore)
		}
		users = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`Create an engaging monthly recap for "%s %d" for an anonymous confession app:

📊 MONTHLY STATS:
- %d confessions shared
- %d votes cast by the community
- Average toxicity level: %d/100

🔥 TOP CONFESSIONS OF THE MONTH:
%s

😈 MOST CONTROVERSIAL USERS:
%s

Requirements:
- Write 250-350 words in an engaging, slightly sarcastic tone
- Highlight interesting patterns or trends you notice
- Reference standout confessions tastefully (no direct quotes of sensitive content)
- Acknowledge toxic users playfully but not cruelly
- Use relevant emojis throughout
- End with anticipation for next month
- Keep it entertaining but respectful

Focus on community dynamics, voting patterns, and the overall "vibe" of the month.`,
		monthName, year,
		agg.TotalConfessions,
		agg.TotalVotes,
		int(jsRound(agg.AverageToxicity)),
		confessions.String(),
		users,
	)
}

// recapAggregate holds the month data a recap is built from.
type recapAggregate struct {
	TotalConfessions int
	TotalVotes       int
	AverageToxicity  float64
	TopConfessions   []models.Confession
	TopUsers         []models.UserProfile
}

func aggregateRecap(confessions []models.Confession, users []models.UserProfile) *recapAggregate {
	agg := &recapAggregate{TotalConfessions: len(confessions)}
	for _, c := range confessions {
		agg.TotalVotes += c.Upvotes + c.Downvotes
	}
	if len(users) > 0 {
		sum := 0
		for _, u := range users {
			sum += u.ToxicityScore
		}
		agg.AverageToxicity = float64(sum) / float64(len(users))
	}
	agg.TopConfessions = confessions[:min(len(confessions), recapTopConfessions)]
	agg.TopUsers = users[:min(len(users), recapTopUsers)]
	return agg
}

func (a *recapAggregate) stats() models.RecapStats {
	return models.RecapStats{
		TotalConfessions:    a.TotalConfessions,
		TotalVotes:          a.TotalVotes,
		AverageToxicity:     jsRound(a.AverageToxicity*10) / 10,
		TopConfessionsCount: len(a.TopConfessions),
		TopToxicUsersCount:  len(a.TopUsers),
	}
}
