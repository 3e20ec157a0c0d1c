// Package server exposes the research pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// TurnRequest carries the conversation so far; the server keeps no session state.
type TurnRequest struct {
	Utterance string                    `json:"utterance"`
	History   []models.ConversationTurn `json:"history"`
}

type TurnResponse struct {
	Turn      models.ConversationTurn `json:"turn"`
	Notices   []string                `json:"notices,omitempty"`
	Reasoning string                  `json:"reasoning,omitempty"`
}

type PlanRequest struct {
	Utterance string                    `json:"utterance"`
	History   []models.ConversationTurn `json:"history"`
}

type ResearchRequest struct {
	Queries []string `json:"queries"`
}

type ResearchResponse struct {
	ResearchResults []models.ResearchResult `json:"researchResults"`
}

type IcebreakRequest struct {
	CustomerInput string `json:"customerInput"`
}

// Deps are the pipeline components served. Nil components answer 503.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Planner      *planner.Planner
	Researcher   orchestrator.Researcher
	Briefer      *icebreak.Briefer
	Registry     *registry.ActivityRegistry
	Logger       logger.Logger
}

type Server struct {
	deps Deps
	app  *fiber.App
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Registry == nil {
		deps.Registry = registry.Default()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s := &Server{deps: deps, app: app}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	api.Post("/turns", s.handleTurn)
	api.Post("/plan", s.handlePlan)
	api.Post("/research", s.handleResearch)
	api.Post("/icebreak", s.handleIcebreak)
	api.Get("/activities", func(c *fiber.Ctx) error {
		return c.JSON(s.deps.Registry)
	})

	return s
}

// App exposes the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.deps.Logger.Info("Starting HTTP server", map[string]interface{}{"address": addr})
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

var errUnavailable = errors.New("component not configured")

// decode parses the body into v after validating it against the activity's input schema.
// When ok is false the error response has already been written.
func (s *Server) decode(c *fiber.Ctx, taskType string, v interface{}) (ok bool, err error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if activity, found := s.deps.Registry.Find(taskType); found {
		res, err := activity.ValidateInput(raw)
		if err != nil {
			return false, c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
		}
		if !res.Valid {
			return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation failed", Details: res.GetErrorMessages()})
		}
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	return true, nil
}

func unavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: errUnavailable.Error()})
}

func (s *Server) handleTurn(c *fiber.Ctx) error {
	if s.deps.Orchestrator == nil {
		return unavailable(c)
	}
	var req TurnRequest
	if ok, err := s.decode(c, "research-turn", &req); !ok {
		return err
	}

	rec := &display.Recorder{}
	turn, err := s.deps.Orchestrator.Fork(models.NewHistory(req.History...), rec).RunTurn(c.UserContext(), req.Utterance)
	if err != nil {
		s.deps.Logger.Error("Turn failed", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	resp := TurnResponse{Turn: turn, Notices: rec.Texts("notice")}
	if reasoning := rec.Texts("reasoning"); len(reasoning) > 0 {
		resp.Reasoning = reasoning[0]
	}
	return c.JSON(resp)
}

func (s *Server) handlePlan(c *fiber.Ctx) error {
	if s.deps.Planner == nil {
		return unavailable(c)
	}
	var req PlanRequest
	if ok, err := s.decode(c, "research-turn", &req); !ok {
		return err
	}
	return c.JSON(s.deps.Planner.Plan(c.UserContext(), req.Utterance, req.History))
}

func (s *Server) handleResearch(c *fiber.Ctx) error {
	if s.deps.Researcher == nil {
		return unavailable(c)
	}
	var req ResearchRequest
	if ok, err := s.decode(c, "research-aggregate", &req); !ok {
		return err
	}
	return c.JSON(ResearchResponse{ResearchResults: s.deps.Researcher.Run(c.UserContext(), req.Queries)})
}

func (s *Server) handleIcebreak(c *fiber.Ctx) error {
	if s.deps.Briefer == nil {
		return unavailable(c)
	}
	var req IcebreakRequest
	if ok, err := s.decode(c, "icebreak-briefing", &req); !ok {
		return err
	}

	briefing, err := s.deps.Briefer.Brief(c.UserContext(), req.CustomerInput)
	if err != nil {
		s.deps.Logger.Warn("Briefing failed", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(briefing)
}
