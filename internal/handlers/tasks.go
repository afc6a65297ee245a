package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ytbs/bettersearch/internal/models"
)

// ListTasks always reports an empty task list.
func ListTasks(c *fiber.Ctx) error {
	return c.JSON(models.TaskList{Tasks: []models.TaskStatus{}})
}

// GetTask reports the requested task as in progress. No lookup happens.
func GetTask(c *fiber.Ctx) error {
	return c.JSON(models.TaskStatus{
		TaskID: c.Params("task_id"),
		Status: models.TaskStatusInProgress,
	})
}
