package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"vishing-sim/backend/internal/agent"
	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/feedback"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/metrics"
	"vishing-sim/backend/internal/persona"
	"vishing-sim/backend/internal/store"
)

const (
	eventSession = "session_started"
	eventTurn    = "turn"
)

// Config defines server dependencies.
type Config struct {
	DBPath             string
	SilentDB           bool
	AllowedOrigins     []string
	AIConfig           ai.Config
	DisableAI          bool
	DomainRoleCacheTTL time.Duration
	PersonasPath       string
	GroundingCSVPath   string
	GroundingLimit     int

	// Oracle replaces the oracle built from AIConfig when set.
	Oracle ai.Oracle
	// Registry receives the service metrics; a fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server wires HTTP handlers with persistence and the integrity pipeline.
type Server struct {
	db             *store.Database
	personas       *persona.Registry
	oracle         ai.Oracle
	pipeline       *agent.Pipeline
	evaluator      *feedback.Evaluator
	registry       *prometheus.Registry
	notifier       *TurnNotifier
	allowedOrigins []string
	provider       string
	groundingLimit int
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	personas, err := persona.Load(cfg.PersonasPath)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := metrics.New(registry)

	oracle := cfg.Oracle
	provider := "custom"
	if oracle == nil {
		provider = strings.ToLower(strings.TrimSpace(cfg.AIConfig.Provider))
		if provider == "" {
			provider = "openai"
		}
		if cfg.DisableAI {
			logrus.Info("reasoning oracle disabled via configuration, every turn will be refused")
			oracle = ai.NewLLMOracle(nil, 0, nil)
			provider = "disabled"
		} else {
			built, err := ai.New(context.Background(), cfg.AIConfig, m)
			if errors.Is(err, ai.ErrDisabled) {
				db.Close()
				return nil, errors.New("reasoning oracle disabled: configure OpenAI or Gemini credentials")
			}
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("reasoning oracle: %w", err)
			}
			oracle = built
		}
	}
	if cfg.DomainRoleCacheTTL > 0 {
		oracle = ai.WithDomainRoleCache(oracle, cfg.DomainRoleCacheTTL)
		logrus.WithField("ttl", cfg.DomainRoleCacheTTL).Info("domain-role cache enabled")
	}

	if err := loadGrounding(db, cfg.GroundingCSVPath); err != nil {
		db.Close()
		return nil, err
	}

	limit := cfg.GroundingLimit
	if limit <= 0 {
		limit = grounding.DefaultLimit
	}

	return &Server{
		db:       db,
		personas: personas,
		oracle:   oracle,
		pipeline: agent.New(personas, oracle, db, agent.Options{
			GroundingLimit: limit,
			Metrics:        m,
		}),
		evaluator:      feedback.NewEvaluator(oracle),
		registry:       registry,
		notifier:       NewTurnNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		provider:       provider,
		groundingLimit: limit,
	}, nil
}

// loadGrounding imports the CSV at path when given, and otherwise seeds an
// empty corpus with the embedded examples.
func loadGrounding(db *store.Database, path string) error {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		examples, err := grounding.LoadCSV(trimmed)
		if err != nil {
			return fmt.Errorf("load grounding corpus: %w", err)
		}
		if err := db.ReplaceGroundingExamples(examples); err != nil {
			return fmt.Errorf("store grounding corpus: %w", err)
		}
		logrus.WithFields(logrus.Fields{"path": trimmed, "examples": len(examples)}).Info("imported grounding corpus")
		return nil
	}

	count, err := db.CountGroundingExamples()
	if err != nil {
		return fmt.Errorf("count grounding examples: %w", err)
	}
	if count > 0 {
		logrus.WithField("examples", count).Info("using stored grounding corpus")
		return nil
	}
	examples, err := grounding.SeedExamples()
	if err != nil {
		return err
	}
	if err := db.ReplaceGroundingExamples(examples); err != nil {
		return fmt.Errorf("seed grounding corpus: %w", err)
	}
	logrus.WithField("examples", len(examples)).Info("seeded grounding corpus")
	return nil
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/domains", s.handleDomains)
		api.POST("/process", s.handleProcess)
		api.GET("/sessions", s.handleListSessions)
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id", s.handleGetSession)
		api.GET("/sessions/:id/turns", s.handleListTurns)
		api.POST("/sessions/:id/turns", s.handleCreateTurn)
		api.GET("/sessions/:id/feedback", s.handleFeedback)
		api.GET("/sessions/:id/export.csv", s.handleExportCSV)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	examples, err := s.db.CountGroundingExamples()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	domains := make([]string, 0, len(persona.Domains))
	for _, d := range persona.Domains {
		domains = append(domains, string(d))
	}
	c.JSON(http.StatusOK, gin.H{
		"oracle_provider":      s.provider,
		"oracle_enabled":       s.oracle.Enabled(),
		"grounding_examples":   examples,
		"grounding_limit":      s.groundingLimit,
		"disclosure_threshold": 5,
		"domains":              domains,
	})
}

func (s *Server) handleDomains(c *gin.Context) {
	personas := s.personas.All()
	out := make([]DomainDTO, 0, len(personas))
	for _, p := range personas {
		out = append(out, FromPersona(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleProcess(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	result, err := s.pipeline.Process(c.Request.Context(), req.Text, req.Domain, req.History)
	if err != nil {
		s.renderError(c, statusForPipelineError(err), err)
		return
	}
	s.notifier.Broadcast(turnEvent("", 0, result, s.isBreach(result)))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 50
	}
	rows, total, err := s.db.ListSessions(page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]SessionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromSession(row))
	}
	c.JSON(http.StatusOK, SessionListResponse{Items: items, Total: total})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	domain, err := persona.ParseDomain(req.Domain)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	session, err := s.db.CreateSession(string(domain), req.Trainee)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"session": session.ID,
		"domain":  session.Domain,
		"trainee": session.Trainee,
	}).Info("training session started")
	s.notifier.Broadcast(TurnEvent{Type: eventSession, SessionID: session.ID, Domain: session.Domain})
	c.JSON(http.StatusCreated, FromSession(*session))
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, FromSession(*session))
}

func (s *Server) handleListTurns(c *gin.Context) {
	session, ok := s.loadSession(c)
	if !ok {
		return
	}
	turns, err := s.db.ListTurns(session.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]TurnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, FromTurn(t))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateTurn(c *gin.Context) {
	session, ok := s.loadSession(c)
	if !ok {
		return
	}
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	prior, err := s.db.ListTurns(session.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	history := make([]ai.HistoryTurn, 0, len(prior))
	for _, t := range prior {
		history = append(history, ai.HistoryTurn{User: t.UserInput, Agent: t.AgentResponse})
	}

	result, err := s.pipeline.Process(c.Request.Context(), req.Text, session.Domain, history)
	if err != nil {
		s.renderError(c, statusForPipelineError(err), err)
		return
	}

	breach := s.isBreach(result)
	turn := &store.Turn{
		SessionID:        session.ID,
		UserInput:        result.Input,
		AgentResponse:    result.Response,
		Role:             result.Role,
		DomainRoleScore:  result.Integrity.DomainRoleScore,
		RequestRoleScore: result.Integrity.RequestRoleScore,
		TotalScore:       result.Integrity.Total,
		GatePassed:       result.Integrity.GatePassed,
		Breach:           breach,
		Outcome:          result.Outcome,
		Rationale:        result.Integrity.Rationale,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	turn.SetRequested(result.RequestedInfo)
	turn.SetRevealed(result.InfoToReveal)
	turn.SetWithheld(result.Decision.Withheld)
	turn.SetAnalysisLog(result.RationaleLog)
	if err := s.db.SaveTurn(turn); err != nil {
		s.renderError(c, http.StatusInternalServerError, fmt.Errorf("save turn: %w", err))
		return
	}

	s.notifier.Broadcast(turnEvent(session.ID, turn.Seq, result, breach))
	c.JSON(http.StatusOK, gin.H{
		"turn":   FromTurn(*turn),
		"result": result,
	})
}

func (s *Server) handleFeedback(c *gin.Context) {
	session, ok := s.loadSession(c)
	if !ok {
		return
	}
	turns, err := s.db.ListTurns(session.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	graded := make([]feedback.Turn, 0, len(turns))
	for _, t := range turns {
		graded = append(graded, feedback.Turn{
			UserInput:     t.UserInput,
			AgentResponse: t.AgentResponse,
			Score:         t.TotalScore,
			Revealed:      t.Revealed(),
			Breach:        t.Breach,
		})
	}
	c.JSON(http.StatusOK, s.evaluator.Evaluate(c.Request.Context(), session.Domain, graded))
}

func (s *Server) handleExportCSV(c *gin.Context) {
	session, ok := s.loadSession(c)
	if !ok {
		return
	}
	turns, err := s.db.ListTurns(session.ID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.csv", session.ID))
	c.Header("Content-Type", "text/csv")

	if err := writeTurnsCSV(c.Writer, turns); err != nil {
		logrus.WithError(err).WithField("session", session.ID).Warn("session export truncated")
	}
}

func writeTurnsCSV(w io.Writer, turns []store.Turn) error {
	writer := csv.NewWriter(w)
	headers := []string{"seq", "user_input", "user_role", "requested_info", "info_to_reveal", "domain_role_score", "request_role_score", "integrity_score", "gate_passed", "breach", "outcome", "agent_response", "processing_time_ms"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, t := range turns {
		dto := FromTurn(t)
		line := []string{
			strconv.Itoa(dto.Seq),
			dto.UserInput,
			dto.Role,
			strings.Join(dto.RequestedInfo, "|"),
			strings.Join(dto.InfoToReveal, "|"),
			fmt.Sprintf("%.2f", dto.DomainRoleScore),
			fmt.Sprintf("%.2f", dto.RequestRoleScore),
			fmt.Sprintf("%.2f", dto.IntegrityScore),
			strconv.FormatBool(dto.GatePassed),
			strconv.FormatBool(dto.Breach),
			dto.Outcome,
			dto.AgentResponse,
			strconv.FormatInt(dto.ProcessingTimeMs, 10),
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("write export row %d: %w", dto.Seq, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("turn websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("turn websocket closed")
			} else {
				logrus.WithError(err).Warn("turn websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) loadSession(c *gin.Context) (*store.Session, bool) {
	session, err := s.db.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, err)
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return nil, false
	}
	return session, true
}

// isBreach reports whether a turn revealed any critical category.
func (s *Server) isBreach(result agent.TurnResult) bool {
	p, err := s.personas.Lookup(result.Domain)
	if err != nil {
		return false
	}
	for _, key := range result.InfoToReveal {
		if p.Tier(key) == persona.TierCritical {
			return true
		}
	}
	return false
}

func turnEvent(sessionID string, seq int, result agent.TurnResult, breach bool) TurnEvent {
	return TurnEvent{
		Type:      eventTurn,
		SessionID: sessionID,
		Domain:    string(result.Domain),
		Seq:       seq,
		Role:      result.Role,
		Score:     result.Integrity.Total,
		Outcome:   result.Outcome,
		Requested: result.RequestedInfo,
		Revealed:  result.InfoToReveal,
		Breach:    breach,
	}
}

func statusForPipelineError(err error) int {
	if errors.Is(err, agent.ErrEmptyInput) || errors.Is(err, persona.ErrUnknownDomain) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
