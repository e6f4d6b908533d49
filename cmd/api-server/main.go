package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/lms-api/api/swagger"
	"github.com/campusworks/lms-api/internal/authz"
	"github.com/campusworks/lms-api/internal/handler"
	"github.com/campusworks/lms-api/internal/middleware"
	"github.com/campusworks/lms-api/internal/repository"
	"github.com/campusworks/lms-api/internal/service"
	"github.com/campusworks/lms-api/pkg/cache"
	"github.com/campusworks/lms-api/pkg/config"
	"github.com/campusworks/lms-api/pkg/database"
	"github.com/campusworks/lms-api/pkg/logger"
	corsmiddleware "github.com/campusworks/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/lms-api/pkg/middleware/requestid"
)

// @title CampusWorks LMS API
// @version 1.0.0
// @description Academic records service: accounts, courses, enrollments and grading
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	validate := validator.New()

	accountRepo := repository.NewAccountRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	linker := service.NewAccountLinker(accountRepo, logr, cfg.Account.InitialPassword)
	authSvc := service.NewAuthService(accountRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, accountRepo, linker, validate, logr, cfg.Account.SyncUsername)
	instructorSvc := service.NewInstructorService(instructorRepo, courseRepo, assignmentRepo, linker, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, assignmentRepo, studentRepo, courseRepo, cacheRepo, cfg.Cache.SummaryTTL, validate, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))

	courses := auth.Group("/courses")
	{
		courses.GET("", middleware.Authorize(authz.OpListCourses, middleware.NoTarget), courseHandler.List)
		courses.GET("/:id", middleware.Authorize(authz.OpGetCourse, middleware.CourseTarget("id")), courseHandler.Get)
		courses.POST("", middleware.Authorize(authz.OpCreateCourse, middleware.NoTarget), courseHandler.Create)
		courses.PUT("/:id", middleware.Authorize(authz.OpUpdateCourse, middleware.CourseTarget("id")), courseHandler.Update)
		courses.DELETE("/:id", middleware.Authorize(authz.OpDeleteCourse, middleware.CourseTarget("id")), courseHandler.Delete)
		courses.GET("/:id/students", middleware.Authorize(authz.OpListStudentsForCourse, middleware.CourseTarget("id")), courseHandler.ListStudents)
	}

	students := auth.Group("/students")
	{
		students.GET("", middleware.Authorize(authz.OpListStudents, middleware.NoTarget), studentHandler.List)
		students.GET("/:id", middleware.Authorize(authz.OpGetStudent, middleware.StudentTarget("id")), studentHandler.Get)
		students.POST("", middleware.Authorize(authz.OpCreateStudent, middleware.NoTarget), studentHandler.Create)
		students.PUT("/:id", middleware.Authorize(authz.OpUpdateStudent, middleware.StudentTarget("id")), studentHandler.Update)
		students.PUT("/:id/profile", middleware.Authorize(authz.OpUpdateStudentProfile, middleware.StudentTarget("id")), studentHandler.UpdateProfile)
		students.DELETE("/:id", middleware.Authorize(authz.OpDeleteStudent, middleware.StudentTarget("id")), studentHandler.Delete)
		students.GET("/:id/courses", middleware.Authorize(authz.OpListEnrolledCourses, middleware.StudentTarget("id")), studentHandler.ListCourses)
	}

	instructors := auth.Group("/instructors")
	{
		instructors.GET("", middleware.Authorize(authz.OpListInstructors, middleware.NoTarget), instructorHandler.List)
		instructors.GET("/:id", middleware.Authorize(authz.OpGetInstructor, middleware.InstructorTarget("id")), instructorHandler.Get)
		instructors.POST("", middleware.Authorize(authz.OpCreateInstructor, middleware.NoTarget), instructorHandler.Create)
		instructors.PUT("/:id", middleware.Authorize(authz.OpUpdateInstructor, middleware.InstructorTarget("id")), instructorHandler.Update)
		instructors.DELETE("/:id", middleware.Authorize(authz.OpDeleteInstructor, middleware.InstructorTarget("id")), instructorHandler.Delete)
		instructors.POST("/:id/courses/:courseId", middleware.Authorize(authz.OpAssignInstructor, middleware.InstructorTarget("id")), instructorHandler.Assign)
		instructors.DELETE("/:id/courses/:courseId", middleware.Authorize(authz.OpUnassignInstructor, middleware.InstructorTarget("id")), instructorHandler.Unassign)
		instructors.GET("/:id/courses", middleware.Authorize(authz.OpListAssignedCourses, middleware.InstructorTarget("id")), instructorHandler.ListCourses)
	}

	enrollments := auth.Group("/enrollments")
	{
		// Enroll and unenroll carry the student in the payload, so the
		// handler checks the policy itself after binding.
		enrollments.POST("", enrollmentHandler.Enroll)
		enrollments.DELETE("", enrollmentHandler.Unenroll)
		enrollments.GET("/students/:studentId", middleware.Authorize(authz.OpListEnrollmentsByStudent, middleware.StudentTarget("studentId")), enrollmentHandler.ListByStudent)
		enrollments.GET("/courses/:courseId", middleware.Authorize(authz.OpListEnrollmentsByCourse, middleware.CourseTarget("courseId")), enrollmentHandler.ListByCourse)
	}

	grades := auth.Group("/grades")
	{
		grades.POST("", middleware.Authorize(authz.OpUpsertGrade, middleware.NoTarget), gradeHandler.Upsert)
		grades.GET("/students/:studentId", middleware.Authorize(authz.OpListGradesByStudent, middleware.StudentTarget("studentId")), gradeHandler.ListByStudent)
		grades.GET("/courses/:courseId", middleware.Authorize(authz.OpListGradesByCourse, middleware.CourseTarget("courseId")), gradeHandler.ListByCourse)
		grades.GET("/students/:studentId/summary", middleware.Authorize(authz.OpGradeSummary, middleware.StudentTarget("studentId")), gradeHandler.Summary)
		grades.GET("/students/:studentId/transcript", middleware.Authorize(authz.OpStudentTranscript, middleware.StudentTarget("studentId")), gradeHandler.Transcript)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
