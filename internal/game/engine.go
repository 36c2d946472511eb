package game

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/lobby"
	"github.com/triviaduel/backend/internal/models"
	"github.com/triviaduel/backend/internal/trivia"
)

var (
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrAlreadyInLobby = errors.New("user already in lobby")
)

// LobbyStore is the slice of the lobby store the engine needs.
type LobbyStore interface {
	Get(ctx context.Context, name string) (*models.Lobby, error)
	Save(ctx context.Context, l *models.Lobby) error
	Delete(ctx context.Context, name string) error
	ClearTTL(ctx context.Context, name string) error
}

// Locker serializes lobby read-modify-writes; Lock blocks until acquired
// and returns the release function.
type Locker interface {
	Lock(ctx context.Context, name string) (func(), error)
}

// QuestionSource provides question batches with session-token continuity.
type QuestionSource interface {
	Token(ctx context.Context) (string, error)
	Questions(ctx context.Context, token string) ([]trivia.Question, error)
}

// Publisher broadcasts an event to every socket subscribed to a lobby group.
type Publisher interface {
	Publish(ctx context.Context, lobbyName string, event interface{}) error
}

// GameEntry is one side of a persisted multiplayer game.
type GameEntry struct {
	UserID     int64
	OpponentID int64
	Status     models.GameStatus
	Rank       int
}

// GameRecorder persists users and completed games.
type GameRecorder interface {
	User(ctx context.Context, id int64) (*models.User, error)
	UpdateUserRank(ctx context.Context, id int64, rank int) error
	SaveMultiplayerGame(ctx context.Context, gameType models.GameType, entries [2]GameEntry) error
}

type questionTimer struct {
	serial int
	timer  *time.Timer
}

// Engine drives the per-lobby duel state machine. All lobby mutations run
// under the per-lobby lock: lock, load, mutate, save, publish, unlock.
type Engine struct {
	lobbies   LobbyStore
	locks     Locker
	questions QuestionSource
	pub       Publisher
	rec       GameRecorder
	cfg       *config.Config

	mu     sync.Mutex
	timers map[string]*questionTimer
}

func NewEngine(lobbies LobbyStore, locks Locker, questions QuestionSource, pub Publisher, rec GameRecorder, cfg *config.Config) *Engine {
	return &Engine{
		lobbies:   lobbies,
		locks:     locks,
		questions: questions,
		pub:       pub,
		rec:       rec,
		cfg:       cfg,
		timers:    make(map[string]*questionTimer),
	}
}

// Join admits a user into a lobby. The first attach clears the pre-join
// TTL; the second broadcasts game.prepare.
func (e *Engine) Join(ctx context.Context, lobbyName string, userID int64, username string) error {
	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		return err
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil {
		if errors.Is(err, lobby.ErrNotFound) {
			return ErrLobbyNotFound
		}
		return err
	}

	if len(l.Users) > 1 {
		return ErrLobbyFull
	}
	if _, ok := l.Users[userID]; ok {
		return ErrAlreadyInLobby
	}

	l.Users[userID] = models.PlayerData{Name: username, HP: models.StartingHP}

	// Drop the pre-join expiration before the occupant is recorded, so a
	// failure here leaves the still-empty record to expire on its own.
	if len(l.Users) == 1 {
		if err := e.lobbies.ClearTTL(ctx, lobbyName); err != nil {
			return err
		}
	}

	if err := e.lobbies.Save(ctx, l); err != nil {
		return err
	}

	if len(l.Users) == 2 {
		e.publish(ctx, lobbyName, GamePrepareEvent{Type: EventGamePrepare})
	}

	log.Printf("[GAME] user %d (%s) joined lobby %s (%d/2)", userID, username, lobbyName, len(l.Users))
	return nil
}

// Ready handles game.ready. Duplicates are ignored; the game starts when
// both players are ready.
func (e *Engine) Ready(ctx context.Context, lobbyName string, userID int64) error {
	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		return err
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil {
		return err
	}

	if l.State != models.LobbyWaiting {
		return nil
	}
	p, ok := l.Users[userID]
	if !ok || p.Ready {
		return nil
	}

	p.Ready = true
	l.Users[userID] = p
	l.ReadyCount++

	if l.ReadyCount < 2 || len(l.Users) < 2 {
		return e.lobbies.Save(ctx, l)
	}

	return e.startGame(ctx, l)
}

// startGame runs the READYING -> IN_PROGRESS transition: fetch a session
// token and the first batch, broadcast game.start, question.data and
// question.next, and arm the first question deadline.
func (e *Engine) startGame(ctx context.Context, l *models.Lobby) error {
	token, err := e.questions.Token(ctx)
	if err != nil {
		log.Printf("[GAME] lobby %s: question provider token failed: %v", l.Name, err)
		return e.finish(ctx, l, drawStatuses(l))
	}

	batch, err := e.questions.Questions(ctx, token)
	if err != nil {
		log.Printf("[GAME] lobby %s: question batch failed: %v", l.Name, err)
		return e.finish(ctx, l, drawStatuses(l))
	}

	formatted, correct := trivia.Format(batch, e.cfg.QuestionMaxDurationSeconds)

	now := time.Now()
	l.State = models.LobbyInProgress
	l.TriviaToken = token
	l.CorrectAnswers = correct
	l.CurrentQuestionCount = 0
	l.CurrentAnswerCount = 0
	l.QuestionSerial = 1
	l.GameStartTime = now
	l.QuestionStartTime = now

	if err := e.lobbies.Save(ctx, l); err != nil {
		return err
	}

	names := make(map[int64]string, len(l.Users))
	for id, p := range l.Users {
		names[id] = p.Name
	}

	e.publish(ctx, l.Name, GameStartEvent{
		Type:     EventGameStart,
		Names:    names,
		Duration: e.cfg.GameMaxDurationSeconds,
	})
	e.publish(ctx, l.Name, QuestionDataEvent{Type: EventQuestionData, Questions: formatted})
	e.publish(ctx, l.Name, QuestionNextEvent{Type: EventQuestionNext})

	e.scheduleQuestionTimer(l.Name, l.QuestionSerial, e.questionDuration(correct[0].Difficulty))

	log.Printf("[GAME] lobby %s started (%d questions, ranked=%t)", l.Name, len(correct), l.Ranked)
	return nil
}

// Answer handles question.answered for one player. A second answer to the
// same question from the same player is ignored.
func (e *Engine) Answer(ctx context.Context, lobbyName string, userID int64, answer string) error {
	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		return err
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil {
		return err
	}

	if l.State != models.LobbyInProgress {
		return nil
	}
	p, ok := l.Users[userID]
	if !ok || p.Answered {
		return nil
	}

	return e.scoreAnswer(ctx, l, userID, answer, time.Now())
}

// scoreAnswer applies one answer to the current question and drives the
// state machine forward when it is the second one. Lock must be held and
// the player must not have answered yet.
func (e *Engine) scoreAnswer(ctx context.Context, l *models.Lobby, userID int64, answer string, now time.Time) error {
	ca := l.CorrectAnswers[l.CurrentQuestionCount]
	limit := e.questionDuration(ca.Difficulty)
	correctly := answer == ca.Answer && now.Sub(l.QuestionStartTime) <= limit

	damage := 0
	p := l.Users[userID]
	if !correctly {
		damage = e.cfg.QuestionDifficultyDamage[ca.Difficulty]
		p.HP -= damage
		if p.HP < 0 {
			p.HP = 0
		}
	}
	p.Answered = true
	l.Users[userID] = p

	answered := UserAnsweredEvent{
		Type:          EventUserAnswered,
		UserID:        userID,
		Correctly:     correctly,
		CorrectAnswer: ca.Answer,
		Damage:        damage,
	}

	if l.CurrentAnswerCount == 0 {
		// Wait for the peer.
		l.CurrentAnswerCount = 1
		if err := e.lobbies.Save(ctx, l); err != nil {
			return err
		}
		e.publish(ctx, l.Name, answered)
		return nil
	}

	// Both players have answered the current question.
	gameOver := e.clockExpired(l, now)
	for _, q := range l.Users {
		if q.HP <= 0 {
			gameOver = true
		}
	}

	if gameOver {
		if err := e.lobbies.Save(ctx, l); err != nil {
			return err
		}
		e.publish(ctx, l.Name, answered)
		return e.finish(ctx, l, statusesByHP(l))
	}

	var nextBatch []trivia.FormattedQuestion
	if l.CurrentQuestionCount == len(l.CorrectAnswers)-1 {
		// Batch exhausted; fetch the next one on the same session token.
		batch, err := e.questions.Questions(ctx, l.TriviaToken)
		if err != nil {
			log.Printf("[GAME] lobby %s: question batch failed: %v", l.Name, err)
			if serr := e.lobbies.Save(ctx, l); serr != nil {
				return serr
			}
			e.publish(ctx, l.Name, answered)
			return e.finish(ctx, l, drawStatuses(l))
		}
		formatted, correct := trivia.Format(batch, e.cfg.QuestionMaxDurationSeconds)
		nextBatch = formatted
		l.CorrectAnswers = correct
		l.CurrentQuestionCount = 0
	} else {
		l.CurrentQuestionCount++
	}

	for id, q := range l.Users {
		q.Answered = false
		l.Users[id] = q
	}
	l.CurrentAnswerCount = 0
	l.QuestionSerial++
	l.QuestionStartTime = now

	if err := e.lobbies.Save(ctx, l); err != nil {
		return err
	}

	e.publish(ctx, l.Name, answered)
	if nextBatch != nil {
		e.publish(ctx, l.Name, QuestionDataEvent{Type: EventQuestionData, Questions: nextBatch})
	}
	e.publish(ctx, l.Name, QuestionNextEvent{Type: EventQuestionNext})

	e.scheduleQuestionTimer(l.Name, l.QuestionSerial, e.questionDuration(l.CorrectAnswers[l.CurrentQuestionCount].Difficulty))
	return nil
}

// FiftyFifty handles fifty.request. Returns two incorrect answers of the
// current question, or ok=false when the request must be silently dropped.
func (e *Engine) FiftyFifty(ctx context.Context, lobbyName string, userID int64, answers []string) ([]string, bool) {
	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		return nil, false
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil || l.State != models.LobbyInProgress {
		return nil, false
	}

	p, ok := l.Users[userID]
	if !ok || p.FiftyUsed {
		return nil, false
	}

	ca := l.CorrectAnswers[l.CurrentQuestionCount]
	if ca.Type == "boolean" || len(answers) != 4 {
		return nil, false
	}

	seen := make(map[string]bool, 4)
	hasCorrect := false
	incorrect := make([]string, 0, 3)
	for _, a := range answers {
		if seen[a] {
			return nil, false
		}
		seen[a] = true
		if a == ca.Answer {
			hasCorrect = true
		} else {
			incorrect = append(incorrect, a)
		}
	}
	if !hasCorrect {
		return nil, false
	}

	rand.Shuffle(len(incorrect), func(i, j int) {
		incorrect[i], incorrect[j] = incorrect[j], incorrect[i]
	})

	p.FiftyUsed = true
	l.Users[userID] = p
	if err := e.lobbies.Save(ctx, l); err != nil {
		return nil, false
	}

	return incorrect[:2], true
}

// Disconnect handles a socket close. A drop while IN_PROGRESS forfeits the
// game; the last player out deletes the lobby.
func (e *Engine) Disconnect(ctx context.Context, lobbyName string, userID int64) {
	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		log.Printf("[GAME] disconnect: lock %s failed: %v", lobbyName, err)
		return
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil {
		return
	}
	p, ok := l.Users[userID]
	if !ok {
		return
	}

	if l.State == models.LobbyInProgress {
		statuses := map[int64]models.GameStatus{userID: models.StatusLoss}
		if opp, ok := l.OpponentOf(userID); ok {
			statuses[opp] = models.StatusWin
		}
		if err := e.finish(ctx, l, statuses); err != nil {
			log.Printf("[GAME] disconnect: finish %s failed: %v", lobbyName, err)
		}
	}

	// A departed player's ready vote leaves with them, or a replacement
	// joiner could start the game against a peer that never acknowledged.
	if p.Ready {
		l.ReadyCount--
	}
	delete(l.Users, userID)
	if len(l.Users) == 0 {
		if err := e.lobbies.Delete(ctx, lobbyName); err != nil {
			log.Printf("[GAME] disconnect: delete %s failed: %v", lobbyName, err)
		}
		e.cancelTimer(lobbyName)
		return
	}
	if err := e.lobbies.Save(ctx, l); err != nil {
		log.Printf("[GAME] disconnect: save %s failed: %v", lobbyName, err)
	}
}

// finish runs the FINISHED transition: persist the lobby state, update
// ranks for ranked games, write the Game/UserGame rows and broadcast
// game.end. Lock must be held.
func (e *Engine) finish(ctx context.Context, l *models.Lobby, statuses map[int64]models.GameStatus) error {
	e.cancelTimer(l.Name)

	l.State = models.LobbyFinished
	if err := e.lobbies.Save(ctx, l); err != nil {
		return err
	}

	results := make(map[int64]PlayerResult, len(statuses))
	var entries [2]GameEntry
	i := 0
	for id, status := range statuses {
		u, err := e.rec.User(ctx, id)
		if err != nil {
			return err
		}

		delta := rankDelta(status, e.cfg.GameRankGain)
		gain := 0
		if l.Ranked {
			newRank := u.Rank + delta
			if newRank < 0 {
				newRank = 0
			}
			if err := e.rec.UpdateUserRank(ctx, id, newRank); err != nil {
				return err
			}
			u.Rank = newRank
			gain = delta
		}

		opp, _ := l.OpponentOf(id)
		if i < len(entries) {
			entries[i] = GameEntry{UserID: id, OpponentID: opp, Status: status, Rank: u.Rank}
		}
		results[id] = PlayerResult{Status: strings.ToLower(string(status)), RankGain: gain}
		i++
	}

	if err := e.rec.SaveMultiplayerGame(ctx, l.GameRecordType(), entries); err != nil {
		return err
	}

	e.publish(ctx, l.Name, GameEndEvent{Type: EventGameEnd, Users: results})

	log.Printf("[GAME] lobby %s finished: %v", l.Name, results)
	return nil
}

// questionDeadline fires when the current question's clock runs out. Any
// player that has not answered gets a synthetic empty answer so a silent
// client cannot stall the game.
func (e *Engine) questionDeadline(lobbyName string, serial int) {
	ctx := context.Background()

	unlock, err := e.locks.Lock(ctx, lobbyName)
	if err != nil {
		log.Printf("[GAME] deadline: lock %s failed: %v", lobbyName, err)
		return
	}
	defer unlock()

	l, err := e.lobbies.Get(ctx, lobbyName)
	if err != nil {
		return
	}
	if l.State != models.LobbyInProgress || l.QuestionSerial != serial {
		return
	}

	ids := make([]int64, 0, len(l.Users))
	for id := range l.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := time.Now()
	for _, id := range ids {
		// The first synthetic answer may have advanced or finished the game.
		if l.State != models.LobbyInProgress || l.QuestionSerial != serial {
			return
		}
		if l.Users[id].Answered {
			continue
		}
		if err := e.scoreAnswer(ctx, l, id, "", now); err != nil {
			log.Printf("[GAME] deadline: score %s/%d failed: %v", lobbyName, id, err)
			return
		}
	}
}

func (e *Engine) scheduleQuestionTimer(lobbyName string, serial int, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[lobbyName]; ok {
		t.timer.Stop()
	}
	e.timers[lobbyName] = &questionTimer{
		serial: serial,
		timer:  time.AfterFunc(d, func() { e.questionDeadline(lobbyName, serial) }),
	}
}

func (e *Engine) cancelTimer(lobbyName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[lobbyName]; ok {
		t.timer.Stop()
		delete(e.timers, lobbyName)
	}
}

func (e *Engine) questionDuration(difficulty string) time.Duration {
	return time.Duration(e.cfg.QuestionMaxDurationSeconds[difficulty]) * time.Second
}

func (e *Engine) clockExpired(l *models.Lobby, now time.Time) bool {
	return now.After(l.GameStartTime.Add(time.Duration(e.cfg.GameMaxDurationSeconds) * time.Second))
}

func (e *Engine) publish(ctx context.Context, lobbyName string, event interface{}) {
	if err := e.pub.Publish(ctx, lobbyName, event); err != nil {
		log.Printf("[GAME] publish to %s failed: %v", lobbyName, err)
	}
}

// statusesByHP resolves a game that ended on HP or the game clock: equal hp
// is a draw, otherwise higher hp wins.
func statusesByHP(l *models.Lobby) map[int64]models.GameStatus {
	statuses := make(map[int64]models.GameStatus, len(l.Users))

	ids := make([]int64, 0, len(l.Users))
	for id := range l.Users {
		ids = append(ids, id)
	}
	if len(ids) != 2 {
		for _, id := range ids {
			statuses[id] = models.StatusDraw
		}
		return statuses
	}

	a, b := ids[0], ids[1]
	switch {
	case l.Users[a].HP == l.Users[b].HP:
		statuses[a] = models.StatusDraw
		statuses[b] = models.StatusDraw
	case l.Users[a].HP > l.Users[b].HP:
		statuses[a] = models.StatusWin
		statuses[b] = models.StatusLoss
	default:
		statuses[a] = models.StatusLoss
		statuses[b] = models.StatusWin
	}

	return statuses
}

func drawStatuses(l *models.Lobby) map[int64]models.GameStatus {
	statuses := make(map[int64]models.GameStatus, len(l.Users))
	for id := range l.Users {
		statuses[id] = models.StatusDraw
	}
	return statuses
}

func rankDelta(status models.GameStatus, gain int) int {
	switch status {
	case models.StatusWin:
		return gain
	case models.StatusLoss:
		return -gain
	default:
		return 0
	}
}
