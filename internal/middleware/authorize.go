package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusworks/lms-api/internal/authz"
	appErrors "github.com/campusworks/lms-api/pkg/errors"
	"github.com/campusworks/lms-api/pkg/response"
)

// TargetExtractor derives the policy target from the request, usually from
// path parameters.
type TargetExtractor func(c *gin.Context) authz.Target

// NoTarget is the extractor for operations without a scoped resource.
func NoTarget(*gin.Context) authz.Target { return authz.Target{} }

// StudentTarget extracts the student id path parameter.
func StudentTarget(param string) TargetExtractor {
	return func(c *gin.Context) authz.Target {
		return authz.Target{StudentID: c.Param(param)}
	}
}

// InstructorTarget extracts the instructor id path parameter.
func InstructorTarget(param string) TargetExtractor {
	return func(c *gin.Context) authz.Target {
		return authz.Target{InstructorID: c.Param(param)}
	}
}

// CourseTarget extracts the course id path parameter.
func CourseTarget(param string) TargetExtractor {
	return func(c *gin.Context) authz.Target {
		return authz.Target{CourseID: c.Param(param)}
	}
}

// Authorize evaluates the policy for op against the request's principal and
// the extracted target. Requests without verified claims are rejected.
func Authorize(op authz.Operation, extract TargetExtractor) gin.HandlerFunc {
	if extract == nil {
		extract = NoTarget
	}
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		principal := authz.Principal{
			AccountID:    claims.AccountID,
			Role:         claims.Role,
			StudentID:    claims.StudentID,
			InstructorID: claims.InstructorID,
		}
		if !authz.Allow(principal, op, extract(c)) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
