package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/store"
)

// resource serves list/get/create/update/delete for one table.
type resource[T any] struct {
	repo *store.Repository[T]
}

func newResource[T any](s *Server, preloads ...string) resource[T] {
	return resource[T]{repo: store.NewRepository[T](s.db, preloads...)}
}

func (r resource[T]) list(c *gin.Context) {
	rows, err := r.repo.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (r resource[T]) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	row, err := r.repo.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (r resource[T]) create(c *gin.Context) {
	var v T
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.repo.Create(c.Request.Context(), &v); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &v)
}

func (r resource[T]) update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var v T
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := r.repo.Update(c.Request.Context(), id, &v)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (r resource[T]) remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := r.repo.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// mount registers the five routes on g. guard, when non-empty, protects
// every route; deleteGuard protects DELETE alone.
func (r resource[T]) mount(g *gin.RouterGroup, guard, deleteGuard []gin.HandlerFunc) {
	with := func(h gin.HandlerFunc, extra []gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, guard...)
		chain = append(chain, extra...)
		return append(chain, h)
	}
	g.GET("", with(r.list, nil)...)
	g.POST("", with(r.create, nil)...)
	g.GET("/:id", with(r.get, nil)...)
	g.PUT("/:id", with(r.update, nil)...)
	g.DELETE("/:id", with(r.remove, deleteGuard)...)
}
