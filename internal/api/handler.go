package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"course-service/internal/service"
	"course-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	purchases *service.PurchaseService
	progress  *service.ProgressService
	courses   *service.CourseService
	access    *service.AccessGate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	purchases *service.PurchaseService,
	progress *service.ProgressService,
	courses *service.CourseService,
	access *service.AccessGate,
) *Handler {
	return &Handler{
		purchases: purchases,
		progress:  progress,
		courses:   courses,
		access:    access,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/purchases", h.createPurchase)
		v1.POST("/purchases/:paymentId/confirm", h.confirmPurchase)
		v1.POST("/purchases/:paymentId/fail", h.failPurchase)
		// Reporting read for the admin dashboard.
		v1.GET("/purchases", h.listCompletedPurchases)

		v1.GET("/courses", h.listCourses)
		v1.POST("/courses", h.createCourse)
		v1.GET("/instructor/courses", h.getCreatorCourses)
		v1.GET("/courses/:courseId", h.getCourse)
		v1.PATCH("/courses/:courseId", h.editCourse)
		v1.PATCH("/courses/:courseId/publish", h.togglePublish)

		v1.GET("/courses/:courseId/purchase-status", h.getPurchaseStatus)
		v1.GET("/courses/:courseId/purchase-pending", h.getPendingPurchase)

		v1.GET("/courses/:courseId/lectures", h.getCourseLectures)
		v1.POST("/courses/:courseId/lectures", h.createLecture)
		v1.GET("/lectures/:lectureId", h.getLecture)
		v1.PATCH("/lectures/:lectureId", h.editLecture)
		v1.DELETE("/lectures/:lectureId", h.removeLecture)

		v1.GET("/courses/:courseId/progress", h.getProgress)
		v1.POST("/courses/:courseId/lectures/:lectureId/view", h.markLectureViewed)
		v1.POST("/courses/:courseId/progress/complete", h.markCourseCompleted)
		v1.POST("/courses/:courseId/progress/incomplete", h.markCourseIncomplete)

		v1.GET("/courses/:courseId/lectures/:lectureId/access", h.checkAccess)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type createPurchaseRequest struct {
	CourseID int64 `json:"course_id" binding:"required"`
}

// createPurchase opens a pending purchase for the authenticated user
func (h *Handler) createPurchase(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	purchase, err := h.purchases.Create(c.Request.Context(), userID, req.CourseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"purchase": purchase})
}

// confirmPurchase transitions a purchase to COMPLETED by payment id
func (h *Handler) confirmPurchase(c *gin.Context) {
	purchase, err := h.purchases.Confirm(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Purchase confirmed", "purchase": purchase})
}

// failPurchase transitions a purchase to FAILED by payment id
func (h *Handler) failPurchase(c *gin.Context) {
	purchase, err := h.purchases.Fail(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Purchase failed", "purchase": purchase})
}

// listCompletedPurchases returns every completed purchase with its course
func (h *Handler) listCompletedPurchases(c *gin.Context) {
	purchases, err := h.purchases.ListCompleted(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// getPurchaseStatus returns the course with the purchased flag for the user
func (h *Handler) getPurchaseStatus(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	status, err := h.purchases.GetStatus(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// getPendingPurchase reports whether an interrupted purchase can be resumed
func (h *Handler) getPendingPurchase(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	pending, err := h.purchases.GetPending(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// listCourses returns published courses, optionally filtered by a search
// query, categories and a price sort.
func (h *Handler) listCourses(c *gin.Context) {
	query := c.Query("query")
	sortByPrice := c.Query("sort_by_price")
	var categories []string
	if raw := c.Query("categories"); raw != "" {
		categories = strings.Split(raw, ",")
	}

	if query == "" && len(categories) == 0 && sortByPrice == "" {
		courses, err := h.courses.ListPublished(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"courses": courses})
		return
	}

	courses, err := h.courses.Search(c.Request.Context(), query, categories, sortByPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// createCourse creates an unpublished course for the authenticated instructor
func (h *Handler) createCourse(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	req.CreatorID = userID

	course, err := h.courses.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course, "message": "Course created"})
}

// getCreatorCourses lists the authenticated instructor's courses
func (h *Handler) getCreatorCourses(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	courses, err := h.courses.GetCreatorCourses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// getCourse returns one course by id
func (h *Handler) getCourse(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	course, err := h.courses.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

// editCourse applies a partial update to a course
func (h *Handler) editCourse(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	var req service.EditCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	course, err := h.courses.EditCourse(c.Request.Context(), courseID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course, "message": "Course updated"})
}

// togglePublish publishes or unpublishes a course
func (h *Handler) togglePublish(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	publish := c.Query("publish") == "true"

	if err := h.courses.TogglePublish(c.Request.Context(), courseID, publish); err != nil {
		respondError(c, err)
		return
	}

	message := "Course unpublished"
	if publish {
		message = "Course published"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// getCourseLectures lists a course's lectures in order
func (h *Handler) getCourseLectures(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	lectures, err := h.courses.GetCourseLectures(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lectures": lectures})
}

type createLectureRequest struct {
	Title string `json:"title" binding:"required"`
}

// createLecture appends a lecture to a course
func (h *Handler) createLecture(c *gin.Context) {
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	var req createLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	lecture, err := h.courses.CreateLecture(c.Request.Context(), courseID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lecture": lecture, "message": "Lecture created"})
}

// getLecture returns one lecture by id
func (h *Handler) getLecture(c *gin.Context) {
	lectureID, ok := pathID(c, "lectureId")
	if !ok {
		return
	}

	lecture, err := h.courses.GetLecture(c.Request.Context(), lectureID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lecture": lecture})
}

// editLecture applies a partial update to a lecture
func (h *Handler) editLecture(c *gin.Context) {
	lectureID, ok := pathID(c, "lectureId")
	if !ok {
		return
	}

	var req service.EditLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	lecture, err := h.courses.EditLecture(c.Request.Context(), lectureID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lecture": lecture, "message": "Lecture updated"})
}

// removeLecture deletes a lecture
func (h *Handler) removeLecture(c *gin.Context) {
	lectureID, ok := pathID(c, "lectureId")
	if !ok {
		return
	}

	if err := h.courses.RemoveLecture(c.Request.Context(), lectureID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lecture removed"})
}

// getProgress returns the user's progress for a course
func (h *Handler) getProgress(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	view, err := h.progress.GetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// markLectureViewed records a lecture view for the user
func (h *Handler) markLectureViewed(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	lectureID, ok := pathID(c, "lectureId")
	if !ok {
		return
	}

	if err := h.progress.MarkViewed(c.Request.Context(), userID, courseID, lectureID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lecture progress updated"})
}

// markCourseCompleted force-completes a course for the user
func (h *Handler) markCourseCompleted(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	if err := h.progress.MarkCourseCompleted(c.Request.Context(), userID, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course marked as completed"})
}

// markCourseIncomplete resets the user's progress for a course
func (h *Handler) markCourseIncomplete(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}

	if err := h.progress.MarkCourseIncomplete(c.Request.Context(), userID, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course marked as incomplete"})
}

// checkAccess answers whether the user may view a lecture
func (h *Handler) checkAccess(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "courseId")
	if !ok {
		return
	}
	lectureID, ok := pathID(c, "lectureId")
	if !ok {
		return
	}

	allowed, err := h.access.CanViewLecture(c.Request.Context(), userID, courseID, lectureID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

// userIDFrom reads the user id injected by the upstream auth layer
func userIDFrom(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user identity"})
		return 0, false
	}
	return userID, true
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps service error kinds to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindInvalidInput:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
