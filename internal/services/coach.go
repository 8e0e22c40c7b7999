package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const (
	CoachSourceGemini   = "gemini"
	CoachSourceFallback = "fallback"

	maxQuestionLength = 1000
	coachTimeout      = 20 * time.Second
)

var ErrNoAPIKey = errors.New("no Gemini API key available")

// TextGenerator produces coaching text for a prompt with the given key.
type TextGenerator interface {
	Generate(ctx context.Context, apiKey, system, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API through google.golang.org/genai.
// Clients are cached per API key.
type GeminiGenerator struct {
	model string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiGenerator(model string) *GeminiGenerator {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{model: model, clients: make(map[string]*genai.Client)}
}

func (g *GeminiGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, apiKey, system, prompt string) (string, error) {
	if apiKey == "" {
		return "", ErrNoAPIKey
	}
	c, err := g.client(ctx, apiKey)
	if err != nil {
		return "", err
	}
	resp, err := c.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.7),
			MaxOutputTokens:   400,
		})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

// CoachReply is what the coach endpoint returns.
type CoachReply struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// CoachService answers player questions with generated text, falling back
// to a canned answer table when no key is available or the API fails.
type CoachService struct {
	gen       TextGenerator
	serverKey string
	log       *zap.Logger
}

func NewCoachService(gen TextGenerator, serverKey string, log *zap.Logger) *CoachService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoachService{gen: gen, serverKey: serverKey, log: log}
}

// Ask answers question for the player. userKey takes precedence over the
// server key.
func (s *CoachService) Ask(ctx context.Context, userKey string, p *models.UserProfile, question string) CoachReply {
	question = strings.TrimSpace(question)
	if len(question) > maxQuestionLength {
		question = question[:maxQuestionLength]
	}

	key := userKey
	if key == "" {
		key = s.serverKey
	}
	if key != "" && s.gen != nil {
		ctx, cancel := context.WithTimeout(ctx, coachTimeout)
		defer cancel()
		text, err := s.gen.Generate(ctx, key, coachSystemPrompt, BuildCoachPrompt(p, question))
		if err == nil {
			return CoachReply{Text: text, Source: CoachSourceGemini}
		}
		s.log.Warn("coach generation failed, using fallback", zap.Error(err))
	}
	return CoachReply{Text: FallbackAdvice(question), Source: CoachSourceFallback}
}

const coachSystemPrompt = "You are an upbeat life coach inside a map-based game that rewards real-world " +
	"habits. Answer in at most four short sentences. Suggest one concrete next step the player can take today."

// BuildCoachPrompt summarises the player's state for the model.
func BuildCoachPrompt(p *models.UserProfile, question string) string {
	var b strings.Builder
	if p != nil {
		a := p.Avatar
		fmt.Fprintf(&b, "Player level %d (%d XP). Scores: health %d, career %d, civic %d, life %d.\n",
			a.Level, a.Experience, a.HealthScore, a.CareerScore, a.CivicScore, a.LifeScore)
		if len(p.CurrentLifeAchievements) > 0 {
			titles := make([]string, 0, len(p.CurrentLifeAchievements))
			for _, id := range p.CurrentLifeAchievements {
				if ach, ok := engine.LookupAchievement(id); ok {
					titles = append(titles, ach.Title)
				}
			}
			fmt.Fprintf(&b, "Working on: %s.\n", strings.Join(titles, ", "))
		}
		fmt.Fprintf(&b, "Open tasks: %d.\n", len(engine.OpenTasks(p)))
		if len(p.Preferences.Interests) > 0 {
			fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(p.Preferences.Interests, ", "))
		}
	}
	if question == "" {
		question = "What should I focus on next?"
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

type fallbackEntry struct {
	keywords []string
	text     string
}

// Checked in order; the first entry with a matching keyword wins.
var fallbackTable = []fallbackEntry{
	{[]string{"sleep", "tired", "insomnia", "rest"},
		"Aim for a fixed bedtime this week and keep screens out of the last half hour. Seven to nine hours earns the rest bonus on your health sync."},
	{[]string{"run", "exercise", "workout", "fitness", "gym", "walk"},
		"Start small: a ten minute walk today counts. Stack it onto something you already do, like after lunch, and log it as a task."},
	{[]string{"volunteer", "civic", "community", "vote", "neighborhood", "cleanup"},
		"Open the map and look for a civic action sign near you. Joining one earns civic points and you can place a sign yourself if something needs fixing."},
	{[]string{"resume", "career", "job", "interview", "skill", "network"},
		"Pick one career task and give it twenty focused minutes today. Updating a single resume section or messaging one contact is real progress."},
	{[]string{"cook", "meal", "food", "eat", "recipe"},
		"Plan three simple dinners for the week and shop once. Cooking at home twice counts toward the Home Cook achievement."},
	{[]string{"money", "budget", "save", "debt", "finance"},
		"Write down every purchase for three days. Seeing where money goes is the first step of the Financial Foundation achievement."},
	{[]string{"stress", "anxious", "overwhelmed", "focus", "phone"},
		"Take a short break away from screens and write down the one thing that matters most today. Finish that before anything else."},
}

const defaultAdvice = "Pick one open task on your list and finish it today. Small daily wins add up to levels."

// FallbackAdvice matches question keywords against a fixed answer table.
func FallbackAdvice(question string) string {
	q := strings.ToLower(question)
	for _, e := range fallbackTable {
		for _, k := range e.keywords {
			if strings.Contains(q, k) {
				return e.text
			}
		}
	}
	return defaultAdvice
}
