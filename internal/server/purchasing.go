package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/models"
)

func (s *Server) registerPurchasingRoutes(v1 *gin.RouterGroup) {
	admins := s.auth.Guard(RoleSuperAdmin, RoleAdmin)

	newResource[models.Supplier](s).mount(v1.Group("/suppliers"), nil, admins)
	newResource[models.PurchasingItem](s, "Category").mount(v1.Group("/purchaseDepartment/items"), nil, admins)
	newResource[models.Delivery](s, "Supplier", "Item").mount(v1.Group("/deliveries"), nil, admins)

	categories := newResource[models.Category](s)
	cg := v1.Group("/categories")
	cg.GET("", categories.list)
	cg.GET("/:id", categories.get)
	cg.POST("", append(s.auth.Guard(RoleSuperAdmin), categories.create)...)
	cg.PUT("/:id", categories.update)
	cg.DELETE("/:id", append(admins, categories.remove)...)

	evaluators := newResource[models.Evaluator](s)
	eg := v1.Group("/evaluators")
	eg.GET("", append(admins, evaluators.list)...)
	eg.POST("", append(admins, evaluators.create)...)
	eg.GET("/:id", evaluators.get)
	eg.DELETE("/:id", append(admins, evaluators.remove)...)

	feedback := newResource[models.DeliveryItem](s, "Delivery", "Item", "Supplier", "Evaluator")
	fg := v1.Group("/deliveryItems")
	fg.GET("", append(admins, feedback.list)...)
	fg.POST("", append(admins, s.createFeedback(feedback))...)
	fg.GET("/all/ratings", s.handleRatings)
	fg.GET("/:id", feedback.get)
	fg.PUT("/:id", feedback.update)
	fg.DELETE("/:id", append(admins, feedback.remove)...)
}

// createFeedback rejects a second submission by the same evaluator for the
// same delivery before inserting. The unique index catches the race between
// the check and the insert.
func (s *Server) createFeedback(r resource[models.DeliveryItem]) gin.HandlerFunc {
	const duplicate = "Feedback already submitted by this evaluator for the given delivery"
	return func(c *gin.Context) {
		var v models.DeliveryItem
		if err := c.ShouldBindJSON(&v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()
		exists, err := r.repo.Exists(ctx, "delivery_id = ? AND evaluator_id = ?", v.DeliveryID, v.EvaluatorID)
		if err != nil {
			respondError(c, err)
			return
		}
		if exists {
			c.JSON(http.StatusConflict, gin.H{"error": duplicate})
			return
		}
		if err := r.repo.Create(ctx, &v); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, &v)
	}
}

// handleRatings lists every feedback row with its supplier's ratings.
//
//	GET /api/v1/deliveryItems/all/ratings
func (s *Server) handleRatings(c *gin.Context) {
	rows, err := s.ratings.ListFeedbackWithRatings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
