package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ytbs/bettersearch/internal/models"
)

// Search echoes its query parameters. search_request is required and
// returned under "status"; the optional additional parameter is returned
// under "task_id", or null when absent.
func Search(c *fiber.Ctx) error {
	args := c.Context().QueryArgs()
	if !args.Has("search_request") {
		return unprocessable(c, "search_request is required")
	}

	result := models.SearchResult{
		Status: string(args.Peek("search_request")),
	}
	if args.Has("additional") {
		additional := string(args.Peek("additional"))
		result.TaskID = &additional
	}
	return c.JSON(result)
}
