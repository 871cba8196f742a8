package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"scout/scout/services/websearch"
	"scout/scout/sources/psql/models"
	"scout/scout/utils/llmtext"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var (
	ErrEmptyInput   = errors.New("user_input is required")
	ErrNoLinks      = errors.New("user_input contains no http(s) links")
	ErrNoKnowledgeQ = errors.New("user_input or session_id is required")
	ErrNoSessionID  = errors.New("session_id is required")
	ErrSessionBusy  = errors.New("session is still running")
)

// finished sessions are forgotten after sessionRetention
const sessionRetention = time.Hour

// KnowledgeRepo is satisfied by dao.WebKnowledgeDAO.
type KnowledgeRepo interface {
	ListByIntent(ctx context.Context, intent string) ([]models.WebKnowledge, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.WebKnowledge, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type sessionState struct {
	orch *websearch.Orchestrator

	mu         sync.Mutex
	status     string
	err        string
	finishedAt time.Time
}

func (s *sessionState) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = "done"
	if err != nil {
		s.status = "failed"
		s.err = err.Error()
	}
	s.finishedAt = time.Now()
}

func (s *sessionState) response() *types.SearchResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.status
	if s.err != "" {
		msg = s.status + ": " + s.err
	}
	return &types.SearchResponse{SessionID: s.orch.ID, Message: msg, Stats: s.orch.Stats()}
}

// SearchController runs crawl sessions in the background. Sessions outlive
// the request that started them and stop when base is cancelled.
type SearchController struct {
	base      context.Context
	factory   *websearch.Factory
	knowledge KnowledgeRepo

	mu       sync.Mutex
	sessions map[string]*sessionState
	wg       sync.WaitGroup
}

func NewSearchController(base context.Context, factory *websearch.Factory, knowledge KnowledgeRepo) *SearchController {
	return &SearchController{
		base:      base,
		factory:   factory,
		knowledge: knowledge,
		sessions:  make(map[string]*sessionState),
	}
}

func (c *SearchController) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		s.mu.Lock()
		if s.status == "running" {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Wait blocks until every background session has returned.
func (c *SearchController) Wait() {
	c.wg.Wait()
}

func (c *SearchController) StartSearch(req types.SearchRequest) (*types.SearchResponse, error) {
	if req.UserInput == "" {
		return nil, ErrEmptyInput
	}
	return c.start(func(ctx context.Context, o *websearch.Orchestrator) error {
		return o.Run(ctx, req.UserInput, req.Depth, req.Timeout)
	})
}

func (c *SearchController) StartBrowse(req types.BrowseRequest) (*types.SearchResponse, error) {
	if len(llmtext.FindLinks(req.UserInput)) == 0 {
		return nil, ErrNoLinks
	}
	return c.start(func(ctx context.Context, o *websearch.Orchestrator) error {
		return o.BrowseLinksFromInput(ctx, req.UserInput, 0)
	})
}

func (c *SearchController) start(run func(context.Context, *websearch.Orchestrator) error) (*types.SearchResponse, error) {
	orch, err := c.factory.NewSession(nil)
	if err != nil {
		return nil, err
	}
	state := &sessionState{orch: orch, status: "running"}

	c.mu.Lock()
	c.pruneLocked()
	c.sessions[orch.ID] = state
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := run(c.base, orch)
		if err != nil {
			logging.ErrorLogger.Error("session failed", zap.String("session", orch.ID), zap.Error(err))
		}
		state.finish(err)
		logging.AppLogger.Info("session finished", zap.String("session", orch.ID), zap.Any("stats", orch.Stats()))
	}()
	return state.response(), nil
}

func (c *SearchController) pruneLocked() {
	cutoff := time.Now().Add(-sessionRetention)
	for id, s := range c.sessions {
		s.mu.Lock()
		old := s.status != "running" && s.finishedAt.Before(cutoff)
		s.mu.Unlock()
		if old {
			delete(c.sessions, id)
		}
	}
}

// Session reports the status and counters of a session started by this process.
func (c *SearchController) Session(id string) (*types.SearchResponse, bool) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.response(), true
}

func (c *SearchController) Knowledge(ctx context.Context, intent, sessionID string) ([]models.WebKnowledge, error) {
	switch {
	case sessionID != "":
		return c.knowledge.ListBySession(ctx, sessionID)
	case intent != "":
		return c.knowledge.ListByIntent(ctx, intent)
	default:
		return nil, ErrNoKnowledgeQ
	}
}

// DeleteKnowledge removes every summary stored by a session. Sessions still
// running in this process are refused.
func (c *SearchController) DeleteKnowledge(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrNoSessionID
	}
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if ok {
		s.mu.Lock()
		running := s.status == "running"
		s.mu.Unlock()
		if running {
			return 0, ErrSessionBusy
		}
	}
	return c.knowledge.DeleteBySession(ctx, sessionID)
}

// SearchWebSocket reads one SearchRequest, runs it while streaming every
// CrawlEvent as JSON, then sends the final SearchResponse and closes.
func (c *SearchController) SearchWebSocket(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusInternalError, "internal error")

	typ, data, err := conn.Read(ctx)
	if err != nil {
		logging.ErrorLogger.Error("websocket read error", zap.Error(err))
		return
	}
	if typ != websocket.MessageText {
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"unsupported data"}`))
		return
	}
	var req types.SearchRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserInput == "" {
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid request"}`))
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	events := make(chan types.CrawlEvent, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range events {
			b, _ := json.Marshal(ev)
			if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
				logging.ErrorLogger.Error("websocket write error", zap.Error(err))
				for range events {
				}
				return
			}
		}
	}()

	orch, err := c.factory.NewSession(func(ev types.CrawlEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		close(events)
		<-writerDone
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"session unavailable"}`))
		return
	}

	runErr := orch.Run(ctx, req.UserInput, req.Depth, req.Timeout)
	close(events)
	<-writerDone

	resp := types.SearchResponse{SessionID: orch.ID, Message: "done", Stats: orch.Stats()}
	if runErr != nil {
		resp.Message = "failed: " + runErr.Error()
	}
	b, _ := json.Marshal(resp)
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
