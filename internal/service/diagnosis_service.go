package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-diagnosis-be/internal/dto"
	"ai-diagnosis-be/internal/pkg/logger"
	"ai-diagnosis-be/internal/repository/memory"
	"ai-diagnosis-be/pkg/diagnosis"
	"ai-diagnosis-be/pkg/events"
	"ai-diagnosis-be/pkg/followup"
	"ai-diagnosis-be/pkg/store"
	"ai-diagnosis-be/pkg/textnorm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session exists for an id, neither
// in memory nor in the snapshot store.
var ErrSessionNotFound = errors.New("session not found")

// IDiagnosisService defines the diagnosis service interface
type IDiagnosisService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	Score(ctx context.Context, sessionId string, request *dto.ScoreRequest) (*dto.ScoreResponse, error)
	NextQuestion(ctx context.Context, sessionId string, condition string) (*dto.NextQuestionResponse, error)
	RecordAnswer(ctx context.Context, sessionId string, request *dto.RecordAnswerRequest) (*dto.RecordAnswerResponse, error)
	GetBoosts(ctx context.Context, sessionId string) (*dto.BoostsResponse, error)
	GetProgress(ctx context.Context, sessionId string) (*dto.ProgressResponse, error)
	ExportSession(ctx context.Context, sessionId string) (*store.SessionSnapshot, error)
	ImportSession(ctx context.Context, sessionId string, raw []byte) error
	DeleteSession(ctx context.Context, sessionId string) error
}

// diagnosisService coordinates the scoring engine, the per-conversation
// session state and the audit event bus.
//
// The followup.Manager inside a session is not safe for concurrent use, so
// every operation on a session id runs under that session's mutex. Lock
// entries are tiny and never removed; they are bounded by the number of
// session ids the process has seen.
type diagnosisService struct {
	engine      *diagnosis.Engine
	normalizer  *textnorm.Normalizer
	sessionRepo *memory.SessionRepository
	snapshots   *store.SnapshotStore
	pubSub      *gochannel.GoChannel
	eventTopic  string
	sysLogger   logger.ILogger
	locks       sync.Map

	defaultTopK        int
	negativeMultiplier float64
	fallbackToGlobal   bool
}

// NewDiagnosisService creates a new diagnosis service with all collaborators injected
func NewDiagnosisService(
	engine *diagnosis.Engine,
	normalizer *textnorm.Normalizer,
	sessionRepo *memory.SessionRepository,
	snapshots *store.SnapshotStore,
	pubSub *gochannel.GoChannel,
	eventTopic string,
	sysLogger logger.ILogger,
	defaultTopK int,
	negativeMultiplier float64,
	fallbackToGlobal bool,
) IDiagnosisService {
	if defaultTopK <= 0 {
		defaultTopK = diagnosis.DefaultTopK
	}
	return &diagnosisService{
		engine:             engine,
		normalizer:         normalizer,
		sessionRepo:        sessionRepo,
		snapshots:          snapshots,
		pubSub:             pubSub,
		eventTopic:         eventTopic,
		sysLogger:          sysLogger,
		defaultTopK:        defaultTopK,
		negativeMultiplier: negativeMultiplier,
		fallbackToGlobal:   fallbackToGlobal,
	}
}

func (ds *diagnosisService) newManager() *followup.Manager {
	return followup.NewManager(ds.negativeMultiplier, ds.fallbackToGlobal)
}

// lockSession serializes access to one session id across requests. The
// returned func releases the lock.
func (ds *diagnosisService) lockSession(sessionId string) func() {
	v, _ := ds.locks.LoadOrStore(sessionId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// loadSession resolves a session by id: memory first, then the snapshot
// store (restoring into a fresh manager), otherwise ErrSessionNotFound.
func (ds *diagnosisService) loadSession(ctx context.Context, sessionId string) (*store.Session, error) {
	if session, found := ds.sessionRepo.Get(sessionId); found {
		return session, nil
	}

	snap, found, err := ds.snapshots.Load(ctx, sessionId)
	if err != nil {
		ds.sysLogger.Warn("diagnosis", "Failed to load session snapshot", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	if found {
		session := store.Restore(*snap, ds.newManager())
		ds.sessionRepo.Save(session)
		return session, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionId)
}

// persist saves the session both in memory and to the snapshot store.
func (ds *diagnosisService) persist(ctx context.Context, session *store.Session) {
	session.Touch()
	ds.sessionRepo.Save(session)
	if err := ds.snapshots.Save(ctx, session.Snapshot()); err != nil {
		ds.sysLogger.Warn("diagnosis", "Failed to persist session snapshot", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

func (ds *diagnosisService) publish(event events.Event) {
	if ds.pubSub == nil {
		return
	}
	data, err := json.Marshal(event.Payload())
	if err != nil {
		ds.sysLogger.Warn("diagnosis", "Failed to marshal event payload", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := ds.pubSub.Publish(ds.eventTopic, msg); err != nil {
		ds.sysLogger.Warn("diagnosis", "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (ds *diagnosisService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	session := store.NewSession(uuid.New().String(), ds.newManager())

	unlock := ds.lockSession(session.ID)
	defer unlock()
	ds.persist(ctx, session)

	ds.sysLogger.Info("diagnosis", "Session created", map[string]interface{}{
		"session_id": session.ID,
	})
	return &dto.CreateSessionResponse{Id: session.ID}, nil
}

func (ds *diagnosisService) Score(ctx context.Context, sessionId string, request *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	normalized := ds.normalizer.Normalize(request.Text)
	topK := request.TopK
	if topK <= 0 {
		topK = ds.defaultTopK
	}

	predictions := ds.engine.Score(ctx, normalized, session.FollowUps, topK)
	ds.persist(ctx, session)

	candidates := make(map[string]float64, len(predictions))
	out := make([]dto.PredictionDTO, 0, len(predictions))
	for _, p := range predictions {
		candidates[p.Condition] = p.Probability

		questions := make([]dto.FollowUpQuestionDTO, 0, len(p.FollowUpQuestions))
		for _, q := range p.FollowUpQuestions {
			questions = append(questions, dto.FollowUpQuestionDTO{Id: q.ID, Text: q.Text, Severity: q.Severity})
		}
		out = append(out, dto.PredictionDTO{
			Condition:         p.Condition,
			Probability:       p.Probability,
			FollowUpQuestions: questions,
		})
	}

	ds.publish(events.NewDiagnosisCompleted(session.ID, candidates))

	return &dto.ScoreResponse{SessionId: session.ID, Predictions: out}, nil
}

func (ds *diagnosisService) NextQuestion(ctx context.Context, sessionId string, condition string) (*dto.NextQuestionResponse, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	var question *followup.PendingQuestion
	if condition != "" {
		question = session.FollowUps.PopNextForCondition(condition)
	} else {
		question = session.FollowUps.PopNext()
	}
	ds.persist(ctx, session)

	response := &dto.NextQuestionResponse{}
	if question != nil {
		response.Question = &dto.PendingQuestionDTO{
			Id:         question.ID,
			Text:       question.Text,
			Severity:   question.Severity,
			Condition:  question.Condition,
			BoostTotal: question.BoostTotal,
		}
	}
	return response, nil
}

func (ds *diagnosisService) RecordAnswer(ctx context.Context, sessionId string, request *dto.RecordAnswerRequest) (*dto.RecordAnswerResponse, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := session.FollowUps.RecordAnswer(request.QuestionId, request.Answer, now); err != nil {
		return nil, err
	}
	ds.persist(ctx, session)

	normalized := string(followup.NormalizeAnswer(request.Answer))
	ds.publish(events.NewAnswerRecorded(session.ID, request.QuestionId, normalized))

	return &dto.RecordAnswerResponse{
		QuestionId:       request.QuestionId,
		NormalizedAnswer: normalized,
		RecordedAt:       now,
		Boosts:           session.FollowUps.DiseaseBoosts(),
	}, nil
}

func (ds *diagnosisService) GetBoosts(ctx context.Context, sessionId string) (*dto.BoostsResponse, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return &dto.BoostsResponse{Boosts: session.FollowUps.DiseaseBoosts()}, nil
}

func (ds *diagnosisService) GetProgress(ctx context.Context, sessionId string) (*dto.ProgressResponse, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return &dto.ProgressResponse{Progress: session.FollowUps.SummarizeProgress()}, nil
}

func (ds *diagnosisService) ExportSession(ctx context.Context, sessionId string) (*store.SessionSnapshot, error) {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

// ImportSession replaces the session's follow-up state with the posted
// snapshot. A corrupt payload resets the session to its empty state rather
// than failing the request.
func (ds *diagnosisService) ImportSession(ctx context.Context, sessionId string, raw []byte) error {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	session, err := ds.loadSession(ctx, sessionId)
	if err != nil {
		return err
	}

	var snap store.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		ds.sysLogger.Warn("diagnosis", "Corrupt session snapshot on import, resetting", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		session.FollowUps.Clear()
		ds.persist(ctx, session)
		return nil
	}

	session.FollowUps.Import(snap.FollowUps)
	ds.persist(ctx, session)
	return nil
}

func (ds *diagnosisService) DeleteSession(ctx context.Context, sessionId string) error {
	unlock := ds.lockSession(sessionId)
	defer unlock()

	ds.sessionRepo.Delete(sessionId)
	if err := ds.snapshots.Delete(ctx, sessionId); err != nil {
		ds.sysLogger.Warn("diagnosis", "Failed to delete session snapshot", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	ds.publish(events.NewSessionCleared(sessionId))
	return nil
}
