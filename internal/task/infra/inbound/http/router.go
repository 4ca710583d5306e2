package http

import "github.com/gin-gonic/gin"

// RegisterTaskRoutes registra las rutas HTTP de tareas y de analítica.
func RegisterTaskRoutes(r gin.IRouter, handler *TaskHandler) {
	tasks := r.Group("/tasks")
	{
		tasks.GET("", handler.ListTasks)              // Listar con filtro y orden de presentación
		tasks.GET("/summary", handler.Summary)        // Resumen del panel de inicio
		tasks.POST("", handler.CreateTask)            // Crear una nueva tarea
		tasks.PATCH("/:id", handler.UpdateTask)       // Actualizar campos sueltos
		tasks.DELETE("/:id", handler.DeleteTask)      // Eliminar una tarea
		tasks.POST("/:id/toggle", handler.ToggleTask) // Completar / descompletar
	}
}

// RegisterAnalyticsRoutes monta /analytics si hay almacén analítico.
func RegisterAnalyticsRoutes(r gin.IRouter, handler *AnalyticsHandler) {
	if handler == nil {
		return
	}
	r.GET("/analytics/trend", handler.DailyTrend)
}
