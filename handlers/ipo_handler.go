package handlers

import (
	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/services"
	"github.com/gofiber/fiber/v2"
)

type IPOHandler struct {
	Service *services.IPODataService
}

func NewIPOHandler(service *services.IPODataService) *IPOHandler {
	return &IPOHandler{Service: service}
}

// GetDashboard returns the dashboard state for a category. When the category
// has never been loaded, a load is triggered first so the initial request does
// not return an empty idle state.
func (h *IPOHandler) GetDashboard(c *fiber.Ctx) error {
	category := models.ParseCategory(c.Query("category", string(models.CategoryMainboard)))

	if h.Service.State(category) == services.LoadStateIdle {
		if err := h.Service.Load(c.Context(), category); err != nil {
			// The snapshot carries the failure state; still return it.
			return c.JSON(fiber.Map{
				"success": true,
				"data":    h.Service.Snapshot(category),
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Service.Snapshot(category),
	})
}

func (h *IPOHandler) GetIPOByID(c *fiber.Ctx) error {
	id := c.Params("id")
	ipo, found := h.Service.FindIPO(id)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ipo,
	})
}

// GetSubscriptionStatus returns a fresh subscription snapshot for one IPO.
// The detail view polls this endpoint while an open IPO is displayed.
func (h *IPOHandler) GetSubscriptionStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	status, err := h.Service.GetSubscriptionStatus(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "IPO not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    status,
	})
}

// GetMetrics exposes the facade's operation counters.
func (h *IPOHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Service.Metrics(),
	})
}

// Refresh forces a live reload for a category.
func (h *IPOHandler) Refresh(c *fiber.Ctx) error {
	category := models.ParseCategory(c.Query("category", string(models.CategoryMainboard)))

	if err := h.Service.Refresh(c.Context(), category); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"data":    h.Service.Snapshot(category),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Service.Snapshot(category),
	})
}
