package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/models"
)

func (s *Server) registerDocumentRoutes(g *gin.RouterGroup) {
	admins := s.auth.Guard(RoleSuperAdmin, RoleAdmin)

	g.POST("", append(s.auth.Guard(RoleSuperAdmin), s.handleDocumentCreate)...)
	g.GET("", s.auth.JWTMiddleware(), s.handleDocumentList)
	g.DELETE("/:id", append(admins, s.handleDocumentDelete)...)
	g.POST("/add-employee-access", append(admins, s.handleAccessChange(true))...)
	g.POST("/remove-employee-access", append(admins, s.handleAccessChange(false))...)
	g.GET("/:id/employee-access", append(admins, s.handleAccessList)...)
}

// handleDocumentCreate stores a document from a multipart form with the
// file in the "document" field.
func (s *Server) handleDocumentCreate(c *gin.Context) {
	doc := models.Document{
		FolderName:   c.PostForm("folderName"),
		RackNumber:   c.PostForm("rackNumber"),
		User:         c.PostForm("user"),
		UploadedFile: []byte{},
	}
	if doc.FolderName == "" || doc.RackNumber == "" || doc.User == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "folderName, rackNumber and user are required"})
		return
	}
	if fh, err := c.FormFile("document"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable document"})
			return
		}
		defer f.Close()
		if doc.UploadedFile, err = io.ReadAll(f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable document"})
			return
		}
	}
	if err := s.documents.Create(c.Request.Context(), &doc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": doc})
}

// handleDocumentList returns the documents visible to the caller. Admins
// see everything; anyone else sees the documents whose access list holds
// one of their roles, and gets 403 when there are none.
//
//	GET /api/v1/documents?searchTerm=
func (s *Server) handleDocumentList(c *gin.Context) {
	ctx := c.Request.Context()
	claims := claimsFrom(c)

	var employees []string
	if !claims.HasAny(RoleSuperAdmin, RoleAdmin) {
		employees = append([]string{}, claims.Role...)
		visible, err := s.documents.List(ctx, "", employees)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(visible) == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: No accessible documents found"})
			return
		}
	}

	docs, err := s.documents.List(ctx, c.Query("searchTerm"), employees)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleDocumentDelete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.documents.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

func (s *Server) handleAccessChange(grant bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			DocumentID uint   `json:"documentId" binding:"required"`
			EmployeeID string `json:"employeeId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		change := s.documents.RevokeAccess
		if grant {
			change = s.documents.GrantAccess
		}
		doc, err := change(c.Request.Context(), body.DocumentID, body.EmployeeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleAccessList returns the employee ids with access to a document.
func (s *Server) handleAccessList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := s.documents.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]string, 0, len(doc.Access))
	for _, a := range doc.Access {
		ids = append(ids, a.EmployeeID)
	}
	c.JSON(http.StatusOK, ids)
}
