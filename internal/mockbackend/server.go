package mockbackend

import (
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"vecta-client/internal/pkg/logger"
	"vecta-client/internal/protocol"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingSecret = "mock-vecta-secret"

var validate = validator.New()

// Server is a scripted stand-in for the Vecta backend: it speaks the
// realtime protocol and a handful of REST endpoints so the client can be
// exercised end to end without the real advisory service.
type Server struct {
	app    *fiber.App
	logger logger.ILogger

	// ChunkDelay paces the scripted stream. Zero for tests.
	ChunkDelay time.Duration
}

func New(log logger.ILogger) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		logger: log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Post("/api/auth/login", s.handleLogin)
	s.app.Get("/api/profile/current", s.handleProfile)
	s.app.Get("/api/features", s.handleFeatures)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/advisory", websocket.New(s.handleSession))
}

// Listen serves on addr. Blocks.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener. Tests use this with a :0 listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// --- REST ---

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var creds struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "unreadable request body",
		})
	}
	if err := validate.Struct(&creds); err != nil {
		message, field := validationDetail(err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": message,
			"field":   field,
		})
	}

	claims := jwt.MapClaims{
		"sub":   creds.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": creds.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "failed to issue token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "ok",
		"data":    fiber.Map{"token": token},
	})
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "ok",
		"data": fiber.Map{
			"assets":         fiber.Map{"savings": 42000.0},
			"income":         fiber.Map{"salary": 95000.0},
			"risk_tolerance": "balanced",
		},
	})
}

func (s *Server) handleFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "ok",
		"data": fiber.Map{
			"document_upload": true,
			"visualizations":  true,
		},
	})
}

// --- Realtime ---

func (s *Server) handleSession(conn *websocket.Conn) {
	sessionId := uuid.NewString()

	s.send(conn, fiber.Map{
		"type":       protocol.TypeConnectionEstablished,
		"session_id": sessionId,
		"timestamp":  time.Now(),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame struct {
			Type         string `json:"type"`
			Content      string `json:"content"`
			Filename     string `json:"filename"`
			DocumentType string `json:"document_type"`
			ExtractionId string `json:"extraction_id"`
			Confirmed    bool   `json:"confirmed"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.send(conn, fiber.Map{
				"type":    protocol.TypeError,
				"message": "unreadable frame",
			})
			continue
		}

		switch frame.Type {
		case protocol.TypeUserMessage:
			// Scripted fault injection: drop the connection without a close
			// frame so clients can rehearse their reconnect path.
			if strings.Contains(strings.ToLower(frame.Content), "drop the connection") {
				return
			}
			s.streamReply(conn, scriptedReply(frame.Content))
			if strings.Contains(strings.ToLower(frame.Content), "goal") {
				s.sendGoalUpdate(conn)
			}

		case protocol.TypeDocumentUpload:
			s.send(conn, fiber.Map{
				"type":     protocol.TypeDocumentProcessing,
				"filename": frame.Filename,
				"status":   "processing",
				"message":  "Reading " + frame.Filename,
			})
			s.send(conn, fiber.Map{
				"type":          protocol.TypeDocumentExtraction,
				"extraction_id": uuid.NewString(),
				"document_type": frame.DocumentType,
				"fields":        fiber.Map{"balance": 12345.67},
				"message":       "Here's what I found, does this look right?",
			})

		case protocol.TypeDocumentConfirm:
			if frame.Confirmed {
				s.send(conn, fiber.Map{
					"type":    protocol.TypeProfileUpdate,
					"profile": fiber.Map{"assets": fiber.Map{"savings": 12345.67}},
					"delta":   fiber.Map{"assets.savings": 12345.67},
				})
			}

		default:
			s.send(conn, fiber.Map{
				"type":    protocol.TypeError,
				"message": "unsupported frame type: " + frame.Type,
			})
		}
	}
}

// streamReply sends the reply word by word, then a bare terminator chunk.
func (s *Server) streamReply(conn *websocket.Conn, reply string) {
	words := strings.SplitAfter(reply, " ")
	for _, word := range words {
		s.send(conn, fiber.Map{
			"type":    protocol.TypeChatResponse,
			"content": word,
		})
		if s.ChunkDelay > 0 {
			time.Sleep(s.ChunkDelay)
		}
	}
	s.send(conn, fiber.Map{
		"type":        protocol.TypeChatResponse,
		"content":     "",
		"is_complete": true,
	})
}

func (s *Server) sendGoalUpdate(conn *websocket.Conn) {
	s.send(conn, fiber.Map{
		"type": protocol.TypeGoalUpdate,
		"qualified_goals": []fiber.Map{
			{"id": "goal-home", "name": "Buy a home", "priority": 1},
		},
		"possible_goals": []fiber.Map{
			{"id": "goal-retire", "name": "Retire at 60", "confidence": 0.6, "deduced_from": "age and income"},
		},
		"rejected_goals": []string{},
	})
}

func (s *Server) send(conn *websocket.Conn, payload fiber.Map) {
	if err := conn.WriteJSON(payload); err != nil {
		s.logger.Warn("MockBackend", "Failed to write frame", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// validationDetail maps the first failed rule onto the envelope's message
// and field keys.
func validationDetail(err error) (message, field string) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "invalid request", ""
	}

	fe := errs[0]
	field = strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		message = field + " is required"
	case "email":
		message = field + " must be a valid email address"
	default:
		message = field + " is invalid"
	}
	return message, field
}

func scriptedReply(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "goal"):
		return "Based on what you've told me, buying a home looks like your top priority. I've updated your goal board."
	case strings.Contains(lower, "super"):
		return "Your superannuation balance is tracking well for your age bracket. Consider reviewing your contribution rate."
	default:
		return "Thanks for sharing that. Tell me more about your financial situation so I can tailor my advice."
	}
}
