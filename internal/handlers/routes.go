package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Register mounts the auth, search and tasks route groups on r.
func Register(r fiber.Router) {
	auth := r.Group("/auth").Name("auth.")
	auth.Post("/", Authenticate).Name("login")

	search := r.Group("/search").Name("search.")
	search.Get("/", Search).Name("query")

	tasks := r.Group("/tasks").Name("tasks.")
	tasks.Post("/", ListTasks).Name("list")
	tasks.Post("/:task_id", GetTask).Name("get")
}

// unprocessable answers with 422 and a JSON error, the way request
// validation failures are reported.
func unprocessable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": msg,
	})
}
