package http

import "github.com/gin-gonic/gin"

// Register attaches generation and project routes to the given router.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/generate", h.generate)

	r.GET("/generation/:id", h.generationStatus)
	r.GET("/generation/:id/events", h.streamGeneration)

	r.GET("/history", h.history)

	project := r.Group("/project")
	project.GET("/:id", h.getProject)
	project.PUT("/:id", h.saveProject)
	project.DELETE("/:id", h.deleteProject)
	project.GET("/:id/image", h.sourceImage)
	project.GET("/:id/export", h.exportProject)
	project.POST("/:id/duplicate", h.duplicateProject)
}
