package proxy

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mamtil/speak/internal/tts"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the id assigned to every proxied request.
const RequestIDHeader = "X-Request-ID"

// ttsRequest is the body clients POST; it matches the upstream contract.
type ttsRequest struct {
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id"`
}

// Server forwards speech requests to the upstream service with the token the
// server holds, so clients never see it.
type Server struct {
	app      *fiber.App
	upstream tts.AudioFetcher
	limiter  *rate.Limiter
	cfg      Config
	logger   *log.Logger
}

// NewServer creates the proxy in front of upstream.
func NewServer(cfg Config, upstream tts.AudioFetcher, logger *log.Logger) (*Server, error) {
	if upstream == nil {
		return nil, errors.New("upstream cannot be nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	s := &Server{
		upstream: upstream,
		limiter:  rate.NewLimiter(limit, max(cfg.Burst, 1)),
		cfg:      cfg,
		logger:   logger.WithPrefix("proxy"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "speak proxy",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		ReadTimeout:           cfg.Timeout + 5*time.Second,
		WriteTimeout:          cfg.Timeout + 5*time.Second,
	})

	// Healthcheck endpoint
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := s.app.Group("/api", s.requestID, s.authorize, s.rateLimit)
	api.Post("/tts", s.synthesize)

	return s, nil
}

// App exposes the fiber app, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured address until ctx is done.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "upstream", s.cfg.UpstreamURL)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	c.Locals("request_id", id)
	c.Set(RequestIDHeader, id)
	return c.Next()
}

func (s *Server) authorize(c *fiber.Ctx) error {
	if s.cfg.ClientToken == "" {
		return c.Next()
	}
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ClientToken)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid token")
	}
	return c.Next()
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if !s.limiter.Allow() {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, slow down")
	}
	return c.Next()
}

func (s *Server) synthesize(c *fiber.Ctx) error {
	var body ttsRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	gender, err := genderForSpeaker(body.SpeakerID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req, err := tts.NewRequest(body.Text, gender, s.cfg.maxChars())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, tts.Describe(err))
	}

	start := time.Now()
	payload, err := s.upstream.Fetch(c.UserContext(), req)
	if err != nil {
		return upstreamError(err)
	}

	s.logger.Debug("proxied",
		"request_id", c.Locals("request_id"),
		"speaker_id", body.SpeakerID,
		"bytes", len(payload.Data),
		"took", time.Since(start),
	)

	c.Set(fiber.HeaderContentType, payload.MIME)
	return c.Send(payload.Data)
}

// genderForSpeaker maps the wire speaker id back to a gender.
func genderForSpeaker(id string) (tts.Gender, error) {
	switch id {
	case tts.GenderMale.SpeakerID():
		return tts.GenderMale, nil
	case tts.GenderFemale.SpeakerID():
		return tts.GenderFemale, nil
	default:
		return tts.GenderUnknown, errors.New(`speaker_id must be "1" or "2"`)
	}
}

// upstreamError turns an upstream failure into the status clients see.
func upstreamError(err error) error {
	var (
		server  *tts.ServerError
		network *tts.NetworkError
		decode  *tts.DecodeError
	)

	// A client timeout arrives wrapped in a NetworkError.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "the speech service timed out")
	case errors.As(err, &server):
		return fiber.NewError(server.Status, server.Message)
	case errors.As(err, &network):
		return fiber.NewError(fiber.StatusBadGateway, "the speech service is unreachable")
	case errors.As(err, &decode):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "the speech service returned unplayable audio")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, tts.Describe(err))
	}
}

// handleError replies {"message"} for every failure, like the upstream does.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := http.StatusText(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed", "request_id", c.Locals("request_id"), "status", code, "error", err)
	} else {
		s.logger.Debug("request rejected", "request_id", c.Locals("request_id"), "status", code, "error", err)
	}

	return c.Status(code).JSON(fiber.Map{"message": msg})
}
