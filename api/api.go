package api

import (
	"errors"

	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/eduhub/marketplace-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, bodyLimit int64, log *logger.Logger) *APIServer {
	return &APIServer{
		app:           NewApp(bodyLimit, log),
		listenAddress: listenAddress,
		log:           log,
	}
}

// NewApp builds the fiber app with the JSON error envelope. bodyLimit leaves
// headroom over the upload ceiling for multipart framing.
func NewApp(bodyLimit int64, log *logger.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "EduHub Marketplace API",
		BodyLimit:    int(bodyLimit) + 1024*1024,
		ErrorHandler: errorHandler(log),
	})
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
			return response.PayloadTooLarge(c, "File too large")
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return response.Error(c, fiberErr.Code, fiberErr.Message, "REQUEST_ERROR")
		}

		log.Error("unhandled request error",
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		return response.InternalServerError(c, "Internal server error")
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
