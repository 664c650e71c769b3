package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vesaa/invmon/internal/importer"
)

// handleExcelUpload imports inventory items from the "file" field.
//
//	POST /api/v1/upload/excel
func (s *Server) handleExcelUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	items, err := importer.Parse(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := importer.Import(c.Request.Context(), s.db, items); err != nil {
		var rowErr *importer.RowError
		if errors.As(err, &rowErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Validation error for item: " + rowErr.Name,
				"details": rowErr.Err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data uploaded and saved successfully", "count": len(items)})
}
