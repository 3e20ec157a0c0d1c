package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
	"github.com/ai-asa/chat-websearch/internal/server"
)

var _ = Describe("Research HTTP API", func() {
	var srv *server.Server

	BeforeEach(func() {
		srv = newTestServer()
	})

	post := func(path, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := srv.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v interface{}) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	Describe("GET /health", func() {
		It("reports ok", func() {
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			decode(resp, &body)
			Expect(body["status"]).To(Equal("ok"))
		})
	})

	Describe("GET /metrics", func() {
		It("serves prometheus text", func() {
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring("go_goroutines"))
		})
	})

	Describe("POST /api/v1/turns", func() {
		It("answers small talk without research", func() {
			resp := post("/api/v1/turns", `{"utterance": "hi there"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body server.TurnResponse
			decode(resp, &body)
			Expect(body.Turn.Assistant).To(Equal("Hello!"))
			Expect(body.Turn.UsedResearch).To(BeFalse())
			Expect(body.Reasoning).To(Equal("small talk"))
		})

		It("researches when the judge says so", func() {
			resp := post("/api/v1/turns", `{"utterance": "what is the latest go?", "history": [{"user": "hi", "assistant": "hello"}]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body server.TurnResponse
			decode(resp, &body)
			Expect(body.Turn.UsedResearch).To(BeTrue())
			Expect(body.Turn.ResearchResults).To(HaveLen(1))
			Expect(body.Turn.Assistant).To(ContainSubstring("1.25"))
		})

		It("rejects a missing utterance", func() {
			resp := post("/api/v1/turns", `{"history": []}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body server.ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(Equal("validation failed"))
			Expect(body.Details).NotTo(BeEmpty())
		})

		It("rejects malformed json", func() {
			resp := post("/api/v1/turns", `{"utterance":`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/v1/plan", func() {
		It("returns the plan without running research", func() {
			resp := post("/api/v1/plan", `{"utterance": "latest go version"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var plan planner.Plan
			decode(resp, &plan)
			Expect(plan.Decision.NeedsResearch).To(BeTrue())
			Expect(plan.Queries).To(Equal([]string{"latest go release"}))
		})
	})

	Describe("POST /api/v1/research", func() {
		It("returns one result per query in order", func() {
			resp := post("/api/v1/research", `{"queries": ["b", "a"]}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body server.ResearchResponse
			decode(resp, &body)
			Expect(body.ResearchResults).To(Equal([]models.ResearchResult{
				{Query: "b", Summary: "summary of b", Status: models.StatusOK},
				{Query: "a", Summary: "summary of a", Status: models.StatusOK},
			}))
		})
	})

	Describe("POST /api/v1/icebreak", func() {
		It("builds a briefing", func() {
			resp := post("/api/v1/icebreak", `{"customerInput": "35, lives in Osaka"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var briefing icebreak.Briefing
			decode(resp, &briefing)
			Expect(briefing.CustomerInfo.Location).To(Equal("Osaka"))
			Expect(briefing.Research).To(HaveKey("weather"))
			Expect(briefing.Suggestions.Topics["weather"].Starter).To(Equal("Sunny today!"))
		})
	})

	Describe("unconfigured components", func() {
		It("answers 503", func() {
			bare := server.New(server.Deps{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/research", strings.NewReader(`{"queries": []}`))
			resp, err := bare.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
