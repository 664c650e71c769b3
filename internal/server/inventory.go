package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/models"
	"github.com/vesaa/invmon/internal/store"
)

func (s *Server) registerInventoryRoutes(v1 *gin.RouterGroup) {
	admins := s.auth.Guard(RoleSuperAdmin, RoleAdmin)

	items := newResource[models.Item](s)
	ig := v1.Group("/items")
	ig.GET("", append(admins, items.list)...)
	ig.POST("", items.create)
	ig.GET("/category", append(admins, s.handleCategoryCounts)...)
	ig.GET("/:id", items.get)
	ig.PUT("/:id", s.updateItem(items))
	ig.DELETE("/:id", append(admins, items.remove)...)

	requests := newResource[models.PurchaseRequest](s)
	pg := v1.Group("/purchase/purchase-requests")
	pg.GET("", requests.list)
	pg.POST("", requests.create)
	pg.GET("/:id", requests.get)
	pg.PUT("/:id", requests.update)
	pg.PATCH("/:id/status", append(admins, s.handleRequestStatus(requests))...)
	pg.DELETE("/:id", requests.remove)

	newResource[models.DamagedItem](s).mount(v1.Group("/damagedItems"), admins, nil)

	inspections := newResource[models.Inspection](s)
	inspections.mount(v1.Group("/inspection-status/inspections"), admins, nil)
	v1.GET("/inspection-status/inspections/item/:itemId", append(admins, s.handleItemInspections)...)
}

// updateItem keeps the stored item code when the body omits one and
// applies the same normalization as create.
func (s *Server) updateItem(r resource[models.Item]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var v models.Item
		if err := c.ShouldBindJSON(&v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()
		current, err := r.repo.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if v.ItemCode == "" {
			v.ItemCode = current.ItemCode
		}
		if err := v.Validate(); err != nil {
			respondError(c, err)
			return
		}
		row, err := r.repo.Update(ctx, id, &v)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

// handleCategoryCounts returns the item count per category.
//
//	GET /api/v1/items/category?search=
func (s *Server) handleCategoryCounts(c *gin.Context) {
	counts, err := s.inventory.CategoryCounts(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) handleItemInspections(c *gin.Context) {
	id, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	rows, err := s.inventory.InspectionsForItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// handleRequestStatus approves or rejects a purchase request.
func (s *Server) handleRequestStatus(r resource[models.PurchaseRequest]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body struct {
			Status string `json:"status" binding:"required,oneof=pending approved rejected"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()
		res := s.db.WithContext(ctx).Model(&models.PurchaseRequest{}).Where("id = ?", id).Update("status", body.Status)
		if res.Error != nil {
			respondError(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, store.ErrNotFound)
			return
		}
		row, err := r.repo.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}
