package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	openai "github.com/openai/openai-go"

	"github.com/theapemachine/a2a-bridge/pkg/a2a"
	"github.com/theapemachine/a2a-bridge/pkg/config"
	"github.com/theapemachine/a2a-bridge/pkg/registry"
	"github.com/theapemachine/a2a-bridge/pkg/responder"
	"github.com/theapemachine/a2a-bridge/pkg/retrieval"
	"github.com/theapemachine/a2a-bridge/pkg/service/sse"
	"github.com/theapemachine/a2a-bridge/pkg/tracking"
)

/*
Server is safe for concurrent use by default because the registry and the
SSE broker are.  It carries both wire surfaces of the bridge: the JSON-RPC
task endpoint and the OpenAI-compatible chat adapter.
*/
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	registry  registry.Registry
	responder responder.Responder
	completer Completer
	searcher  retrieval.Searcher
	tracker   *tracking.Client
	broker    *sse.Broker
	tools     []openai.ChatCompletionToolParam
	card      a2a.AgentCard
}

/*
Completer is the slice of the model gateway the chat adapter needs: one
chat-completion round trip plus the model name for response envelopes.
*/
type Completer interface {
	Complete(
		ctx context.Context,
		messages []openai.ChatCompletionMessageParamUnion,
		tools []openai.ChatCompletionToolParam,
	) (*openai.ChatCompletion, error)
	Model() string
}

// Option overrides one collaborator, used by tests and alternate wiring.
type Option func(*Server)

func WithResponder(r responder.Responder) Option {
	return func(srv *Server) { srv.responder = r }
}

func WithCompleter(c Completer) Option {
	return func(srv *Server) { srv.completer = c }
}

func WithSearcher(s retrieval.Searcher) Option {
	return func(srv *Server) { srv.searcher = s }
}

func WithRegistry(r registry.Registry) Option {
	return func(srv *Server) { srv.registry = r }
}

func WithTracker(t *tracking.Client) Option {
	return func(srv *Server) { srv.tracker = t }
}

func WithBroker(b *sse.Broker) Option {
	return func(srv *Server) { srv.broker = b }
}

func WithTools(tools []openai.ChatCompletionToolParam) Option {
	return func(srv *Server) { srv.tools = tools }
}

/*
New wires a server from configuration.  Options replace individual
collaborators after the default wiring.
*/
func New(cfg *config.Config, options ...Option) *Server {
	stack := responder.NewLlamaStack(
		cfg.LlamaStackURL, cfg.LlamaStackModel, cfg.SystemPrompt,
	)

	srv := &Server{
		cfg:       cfg,
		registry:  registry.NewInMemory(),
		responder: stack,
		broker:    sse.NewBroker(),
		searcher: retrieval.NewClient(
			cfg.LlamaStackURL, cfg.VectorStoreID, cfg.SearchMode, cfg.MaxResults,
		),
		card: a2a.NewAgentCard(
			cfg.AgentName, cfg.AgentDescription, cfg.AgentVersion,
			cfg.AgentURL, cfg.Skills,
		),
	}

	srv.completer = stack

	if cfg.TrackingEnabled() {
		artifacts, err := tracking.NewArtifactStore(
			cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL,
		)

		if err != nil {
			log.Warn("artifact store unavailable", "error", err)
		}

		srv.tracker = tracking.New(cfg.MLflowTrackingURI, cfg.MLflowExperiment, artifacts)
	}

	for _, opt := range options {
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		AppName:           cfg.AgentName,
		ServerHeader:      "A2A-Bridge",
		StreamRequestBody: true,
	})

	srv.app.Use(logger.New(logger.Config{
		// Skip logging for the /events endpoint to reduce noise
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/events"
		},
	}))

	srv.app.Post("/", srv.handleRPC)
	srv.app.Get("/.well-known/agent.json", srv.handleAgentCard)
	srv.app.Get("/health", srv.handleHealth)
	srv.app.Get("/ready", srv.handleReady)
	srv.app.Get("/events", srv.handleEvents)
	srv.app.Post("/v1/chat/completions", srv.handleChatCompletions)

	return srv
}

// App exposes the fiber app for request tests.
func (srv *Server) App() *fiber.App {
	return srv.app
}

/*
Start listens on the configured host and port and blocks until shutdown.
*/
func (srv *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", srv.cfg.Host, srv.cfg.Port)

	return srv.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

func (srv *Server) handleAgentCard(ctx fiber.Ctx) error {
	return ctx.JSON(srv.card)
}

func (srv *Server) handleHealth(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "healthy"})
}

func (srv *Server) handleReady(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ready"})
}

func (srv *Server) handleEvents(ctx fiber.Ctx) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		srv.broker.Subscribe(w, r)
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}
