package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/banmd/go-whatsapp-bot/pkg/log"
)

// Response is the JSON envelope for every route. OK mirrors the HTTP outcome
// so clients can branch without inspecting status codes.
type Response struct {
	OK      bool        `json:"ok"`
	Code    int         `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message || c.OriginalURL() == BaseURL {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Error(fmt.Sprintf("%d %v", code, message))
	}
}

func ResponseSuccess(c *fiber.Ctx, message string) error {
	response := Response{
		OK:   true,
		Code: http.StatusOK,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(response.Code)
	}
	response.Message = message

	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	response := Response{
		OK:   true,
		Code: http.StatusOK,
		Data: data,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(response.Code)
	}
	response.Message = message

	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func ResponseError(c *fiber.Ctx, code int, message string) error {
	response := Response{
		OK:   false,
		Code: code,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(code)
	}
	response.Message = message

	logError(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseNotFound(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusNotFound, message)
}

func ResponseGone(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusGone, message)
}

func ResponseUnauthorized(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusUnauthorized, message)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusBadRequest, message)
}

func ResponseInternalError(c *fiber.Ctx, message string) error {
	return ResponseError(c, http.StatusInternalServerError, message)
}
